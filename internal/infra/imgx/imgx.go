// Package imgx 把站点海报规范化为媒体库使用的 poster.jpg。
package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	_ "image/gif" // 少数站点用 gif 占位图
	"image/jpeg"
	_ "image/png"
)

// PosterJPEG 把海报图片规范化为竖版 JPEG。
//
// 规则：
// - 输入允许 JPEG/PNG/GIF
// - 宽高比明显宽于 2:3 时（列表缩略图常见横图）居中裁切为 2:3，高度不变
// - 其余情况只重新编码
func PosterJPEG(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("海报为空")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	rect := b
	// 宽高比 > 0.7 视为横图；海报按 2:3。
	if b.Dx()*10 > b.Dy()*7 {
		w := b.Dy() * 2 / 3
		x0 := b.Min.X + (b.Dx()-w)/2
		rect = image.Rect(x0, b.Min.Y, x0+w, b.Max.Y)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 92}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
