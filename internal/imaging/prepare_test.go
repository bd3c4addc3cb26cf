package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// gradient builds a w x h image where every pixel is distinct.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 40),
				G: uint8(y * 40),
				B: uint8((x + y) * 20),
				A: 0xff,
			})
		}
	}
	return img
}

func TestPrepare_Dimensions(t *testing.T) {
	src := gradient(3, 5)

	tests := []struct {
		rotation int
		w, h     int
	}{
		{0, 3, 5},
		{90, 5, 3},
		{180, 3, 5},
		{270, 5, 3},
	}
	for _, tt := range tests {
		out, err := Prepare(src, tt.rotation, false)
		if err != nil {
			t.Fatalf("Prepare(%d) error = %v", tt.rotation, err)
		}
		if out.Bounds().Dx() != tt.w || out.Bounds().Dy() != tt.h {
			t.Errorf("rotation %d: got %dx%d, want %dx%d",
				tt.rotation, out.Bounds().Dx(), out.Bounds().Dy(), tt.w, tt.h)
		}
	}
}

func TestPrepare_NilBitmap(t *testing.T) {
	var missing *image.NRGBA
	tests := []struct {
		name string
		src  image.Image
	}{
		{"nil interface", nil},
		{"nil nrgba", missing},
		{"nil rgba", (*image.RGBA)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Prepare(tt.src, 90, true)
			if !errors.Is(err, ErrNilBitmap) {
				t.Errorf("err = %v, want ErrNilBitmap", err)
			}
			if out != nil {
				t.Error("returned a bitmap")
			}
		})
	}
}

func TestPrepare_ClockwiseMapping(t *testing.T) {
	src := gradient(3, 2)
	topLeft := src.NRGBAAt(0, 0)

	t.Run("90 moves top-left to top-right", func(t *testing.T) {
		out, _ := Prepare(src, 90, false)
		if got := out.NRGBAAt(out.Bounds().Dx()-1, 0); got != topLeft {
			t.Errorf("got %v, want %v", got, topLeft)
		}
	})

	t.Run("180 moves top-left to bottom-right", func(t *testing.T) {
		out, _ := Prepare(src, 180, false)
		if got := out.NRGBAAt(2, 1); got != topLeft {
			t.Errorf("got %v, want %v", got, topLeft)
		}
	})

	t.Run("270 moves top-left to bottom-left", func(t *testing.T) {
		out, _ := Prepare(src, 270, false)
		if got := out.NRGBAAt(0, out.Bounds().Dy()-1); got != topLeft {
			t.Errorf("got %v, want %v", got, topLeft)
		}
	})
}

func TestPrepare_Deterministic(t *testing.T) {
	src := gradient(4, 3)
	for _, r := range []int{0, 90, 180, 270} {
		a, _ := Prepare(src, r, false)
		b, _ := Prepare(src, r, false)
		if !bytes.Equal(a.Pix, b.Pix) || a.Rect != b.Rect {
			t.Errorf("rotation %d: outputs differ", r)
		}
	}
}

func TestPrepare_FullTurnIsIdentity(t *testing.T) {
	src := gradient(4, 3)

	out := src
	for i := 0; i < 4; i++ {
		var err error
		out, err = Prepare(out, 90, false)
		if err != nil {
			t.Fatal(err)
		}
	}
	if out.Rect != src.Rect {
		t.Fatalf("bounds = %v, want %v", out.Rect, src.Rect)
	}
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Error("four quarter turns did not restore the original pixels")
	}

	twice, _ := Prepare(src, 180, false)
	twice, _ = Prepare(twice, 180, false)
	if !bytes.Equal(twice.Pix, src.Pix) {
		t.Error("two half turns did not restore the original pixels")
	}
}

func TestPrepare_DoesNotMutateInput(t *testing.T) {
	src := gradient(4, 3)
	orig := append([]byte(nil), src.Pix...)

	for _, r := range []int{0, 90, 180, 270} {
		if _, err := Prepare(src, r, true); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(src.Pix, orig) {
		t.Error("Prepare mutated its input")
	}
}

func TestPrepare_Enhance(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	src.SetNRGBA(0, 0, color.NRGBA{129, 129, 129, 255}) // avg 129 -> white
	src.SetNRGBA(1, 0, color.NRGBA{128, 128, 128, 255}) // avg 128 -> black
	src.SetNRGBA(2, 0, color.NRGBA{255, 130, 0, 200})   // avg 128.3 -> white
	src.SetNRGBA(3, 0, color.NRGBA{10, 20, 30, 255})    // black

	out, err := Prepare(src, 0, true)
	if err != nil {
		t.Fatal(err)
	}

	want := []color.NRGBA{
		{255, 255, 255, 255},
		{0, 0, 0, 255},
		{255, 255, 255, 200},
		{0, 0, 0, 255},
	}
	for x, w := range want {
		if got := out.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d: got %v, want %v", x, got, w)
		}
	}
}

func TestPrepare_EnhanceIdempotent(t *testing.T) {
	src := gradient(5, 4)
	for _, r := range []int{0, 90, 180, 270} {
		once, err := Prepare(src, r, true)
		if err != nil {
			t.Fatal(err)
		}
		again, err := Prepare(once, 0, true)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(once.Pix, again.Pix) {
			t.Errorf("rotation %d: enhancement not idempotent", r)
		}
	}
}

func TestPrepare_InvalidRotation(t *testing.T) {
	if _, err := Prepare(gradient(2, 2), 45, false); err == nil {
		t.Error("expected error for 45 degrees")
	}
	if _, err := Prepare(nil, 0, false); err == nil {
		t.Error("expected error for nil bitmap")
	}
}

func TestPrepare_NonZeroOrigin(t *testing.T) {
	full := gradient(6, 6)
	sub := full.SubImage(image.Rect(2, 2, 5, 4)).(*image.NRGBA)

	out, err := Prepare(sub, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v", out.Rect)
	}
	if out.NRGBAAt(0, 0) != full.NRGBAAt(2, 2) {
		t.Error("sub-image origin not honored")
	}
}

func TestEncodePNG(t *testing.T) {
	src := gradient(3, 3)
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v", decoded.Bounds())
	}
}
