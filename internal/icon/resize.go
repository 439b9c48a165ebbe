package icon

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"webappinfo/internal/webapp"
)

// Resize scales img into a square of each size, in parallel. Non-square
// sources are fitted and centred on a transparent canvas.
func Resize(img image.Image, sizes []int) map[int]image.Image {
	type result struct {
		size int
		img  image.Image
	}

	results := make(chan result)

	var wg sync.WaitGroup
	for _, size := range sizes {
		if size <= 0 {
			continue
		}
		wg.Add(1)
		go func(size int) {
			defer wg.Done()
			results <- result{size: size, img: square(img, size)}
		}(size)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[int]image.Image, len(sizes))
	for res := range results {
		out[res.size] = res.img
	}
	return out
}

func square(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == b.Dy() {
		return imaging.Resize(img, size, size, imaging.Lanczos)
	}
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	canvas := imaging.New(size, size, image.Transparent)
	return imaging.PasteCenter(canvas, fitted)
}

// GenerateSizes returns PNG icons for every requested size that info does
// not already carry, scaled down from its largest decodable icon. Existing
// icons are left untouched and are not part of the result.
func GenerateSizes(info webapp.WebApplicationInfo, sizes []int) ([]webapp.IconInfo, error) {
	have := make(map[int]bool)
	var src webapp.IconInfo
	for _, ic := range info.Icons {
		if !ic.HasData() {
			continue
		}
		if ic.Width == ic.Height {
			have[ic.Width] = true
		}
		if ic.Area() > src.Area() {
			src = ic
		}
	}
	if !src.HasData() {
		return nil, nil
	}

	var missing []int
	for _, s := range sizes {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	img, _, err := Decode(src.Data)
	if err != nil {
		return nil, err
	}

	resized := Resize(img, missing)
	out := make([]webapp.IconInfo, 0, len(resized))
	for _, s := range missing {
		r, ok := resized[s]
		if !ok {
			continue
		}
		data, err := EncodePNG(r)
		if err != nil {
			return nil, err
		}
		out = append(out, webapp.IconInfo{URL: src.URL, Width: s, Height: s, Data: data})
	}
	return out, nil
}
