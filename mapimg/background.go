package mapimg

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// ErrNoBackground is returned when fewer than two same-sized locator maps
// are available, so no base map can be inferred.
var ErrNoBackground = errors.New("cannot infer background from fewer than two maps")

// Background synthesises a plain base map from several locator maps by
// taking the per-pixel, per-channel median across them.
//
// Locator maps for sibling subdivisions are typically the same base map
// with a different subdivision highlighted; the median cancels out each
// individual highlight and recovers the shared background. Images whose
// dimensions differ from the most common size are discarded first. The
// result is written to outPath as PNG.
func Background(paths []string, outPath string) error {
	imgs := make([]*image.NRGBA, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
		imgs = append(imgs, imaging.Clone(img))
	}

	imgs = keepModalSize(imgs)
	if len(imgs) < 2 {
		return ErrNoBackground
	}

	bounds := imgs[0].Bounds()
	out := image.NewNRGBA(bounds)
	n := len(imgs)
	samples := make([]uint8, n)
	for i := range out.Pix {
		for j, img := range imgs {
			samples[j] = img.Pix[i]
		}
		out.Pix[i] = medianU8(samples)
	}

	if err := imaging.Save(out, outPath); err != nil {
		return fmt.Errorf("saving background %s: %w", outPath, err)
	}
	return nil
}

// keepModalSize returns only the images matching the most common dimensions.
func keepModalSize(imgs []*image.NRGBA) []*image.NRGBA {
	counts := make(map[image.Point]int)
	for _, img := range imgs {
		counts[img.Bounds().Size()]++
	}
	var modal image.Point
	best := 0
	for size, n := range counts {
		// Ties break deterministically toward the lexicographically smaller
		// size so repeated runs agree.
		if n > best || (n == best && lessPoint(size, modal)) {
			modal, best = size, n
		}
	}
	kept := imgs[:0]
	for _, img := range imgs {
		if img.Bounds().Size() == modal {
			kept = append(kept, img)
		}
	}
	return kept
}

func lessPoint(a, b image.Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// medianU8 computes the median of the samples, averaging the two middle
// values (truncating) for even counts. Mutates its argument's order.
func medianU8(samples []uint8) uint8 {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	n := len(samples)
	if n%2 == 1 {
		return samples[n/2]
	}
	return uint8((int(samples[n/2-1]) + int(samples[n/2])) / 2)
}
