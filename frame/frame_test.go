package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPixValidatesLength(t *testing.T) {
	_, err := FromPix(2, 2, make([]uint8, 15))
	require.Error(t, err)

	f, err := FromPix(2, 2, make([]uint8, 16))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Len(t, f.Pix, 16)
}

func TestFromPixCopiesBuffer(t *testing.T) {
	pix := make([]uint8, 4)
	f, err := FromPix(1, 1, pix)
	require.NoError(t, err)

	pix[0] = 200
	assert.Equal(t, uint8(0), f.At(0, 0).R)
}

func TestFromImageMovesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 13, 22))
	img.SetNRGBA(11, 21, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	f := FromImage(img)
	require.Equal(t, 3, f.Width)
	require.Equal(t, 2, f.Height)
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 4}, f.At(1, 1))
}

func TestFromImageConvertsPalettedImages(t *testing.T) {
	pal := color.Palette{color.NRGBA{A: 0}, color.NRGBA{R: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	img.SetColorIndex(1, 0, 1)

	f := FromImage(img)
	assert.Equal(t, uint8(0), f.At(0, 0).A)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, f.At(1, 0))
}

func TestCloneIsDeep(t *testing.T) {
	f := New(2, 1)
	c := f.Clone()
	c.Pix[0] = 9

	assert.Equal(t, uint8(0), f.Pix[0])
	assert.False(t, f.Equal(c))
}

func TestToImageRoundTrip(t *testing.T) {
	f := New(3, 3)
	f.Pix[f.offset(2, 1)+3] = 128

	assert.True(t, f.Equal(FromImage(f.ToImage())))
}

func TestSequenceSameSize(t *testing.T) {
	s := Sequence{New(2, 2), New(2, 2), New(3, 2)}
	assert.Equal(t, 2, s.SameSize())
	assert.Equal(t, -1, s[:2].SameSize())
	assert.Equal(t, -1, Sequence{}.SameSize())
}

func TestSequenceCloneAndEqual(t *testing.T) {
	s := Sequence{New(1, 1), New(1, 1)}
	c := s.Clone()
	assert.True(t, s.Equal(c))

	c[1].Pix[2] = 1
	assert.False(t, s.Equal(c))
	assert.Nil(t, Sequence(nil).Clone())
}
