package docspec

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed specs/*.dsl
var builtinFS embed.FS

// Ext 是版式文件的扩展名。
const Ext = ".dsl"

// Registry 是只读的版式集合，构建完成后可被并发读取。
type Registry struct {
	specs map[Kind]*Spec
}

// Get 返回指定类型的版式。
func (r *Registry) Get(kind Kind) (*Spec, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: 版式集合为空", ErrInvalidSpec)
	}
	spec, ok := r.specs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: 未定义单据类型 %q", ErrInvalidSpec, kind)
	}
	return spec, nil
}

// Kinds 返回已注册的类型（排序后）。
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parse 解析并校验一段版式源码。
func Parse(name string, r io.Reader) ([]*Spec, error) {
	file, err := ParseFile(name, r)
	if err != nil {
		return nil, fmt.Errorf("解析版式 %s 失败: %w", name, err)
	}
	return Compile(file)
}

// ParseString 解析并校验字符串形式的版式源码。
func ParseString(name, input string) ([]*Spec, error) {
	return Parse(name, strings.NewReader(input))
}

// Builtin 返回内置的五种单据版式。
func Builtin() (*Registry, error) {
	reg := &Registry{specs: map[Kind]*Spec{}}
	if err := reg.loadFS(builtinFS, "specs"); err != nil {
		return nil, err
	}
	for _, kind := range Kinds() {
		if _, ok := reg.specs[kind]; !ok {
			return nil, fmt.Errorf("%w: 缺少内置版式 %s", ErrInvalidSpec, kind)
		}
	}
	return reg, nil
}

// LoadDir 在内置版式之上加载目录中的 *.dsl 文件，同类型的定义覆盖内置定义。
func LoadDir(dir string) (*Registry, error) {
	reg, err := Builtin()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return reg, nil
	}
	if err := reg.loadFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("读取版式目录失败: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		path := entry.Name()
		if root != "." {
			path = root + "/" + entry.Name()
		}
		f, err := fsys.Open(path)
		if err != nil {
			return fmt.Errorf("打开版式 %s 失败: %w", path, err)
		}
		specs, err := Parse(entry.Name(), f)
		f.Close()
		if err != nil {
			return err
		}
		for _, s := range specs {
			r.specs[s.Kind] = s
		}
	}
	return nil
}
