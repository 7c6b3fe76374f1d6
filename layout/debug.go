package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将文档的页面指令输出为 JSON，便于调试或可视化。
func WriteDebugJSON(doc *Document, path string) error {
	if doc == nil {
		return nil
	}
	data, err := json.MarshalIndent(struct {
		Meta  Meta    `json:"meta"`
		Pages []*Page `json:"pages"`
	}{doc.Meta(), doc.Pages()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
