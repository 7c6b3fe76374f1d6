package renderer

import "github.com/ByLCY/romaneio/layout"

// Renderer 将排版完成的文档序列化为最终文件（例如 PDF）。
// Render 返回生成的二进制数据；序列化失败时返回错误，不返回部分结果。
type Renderer interface {
	Render(doc *layout.Document) ([]byte, error)
}

// FontProvider 提供与渲染器一致的字体度量，供排版阶段测宽。
type FontProvider interface {
	Fonts() layout.Fonts
}
