package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/ByLCY/romaneio/layout"
)

type decoder struct {
	format string
	decode func(data []byte) (image.Image, error)
}

// decoders 按顺序尝试：PNG、JPEG、WebP。
var decoders = []decoder{
	{"png", func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) }},
	{"jpeg", func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) }},
	{"webp", func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) }},
}

// Embed 将图片字节解码为可绘制的图片句柄，依次尝试 PNG、JPEG、WebP。
func Embed(data []byte) (*layout.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("图片数据为空")
	}
	var errs []error
	for _, d := range decoders {
		img, err := d.decode(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.format, err))
			continue
		}
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			errs = append(errs, fmt.Errorf("%s: 图片尺寸为 0", d.format))
			continue
		}
		return &layout.Image{Width: b.Dx(), Height: b.Dy(), Format: d.format, Data: img}, nil
	}
	return nil, fmt.Errorf("无法识别的图片格式: %w", errors.Join(errs...))
}
