package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/config"
	"github.com/ByLCY/romaneio/docspec"
	"github.com/ByLCY/romaneio/documents"
	"github.com/ByLCY/romaneio/kvstore"
	"github.com/ByLCY/romaneio/layout"
	canvasrenderer "github.com/ByLCY/romaneio/renderer/canvas"
	"github.com/ByLCY/romaneio/server"
)

func main() {
	kind := flag.String("kind", string(documents.KindDeliverySheet), "单据类型 (delivery-sheet|separation-sheet|assembly-report|route-report|delivery-proof)")
	input := flag.String("in", "", "输入 JSON 路径，- 表示标准输入")
	output := flag.String("out", "output/romaneio.pdf", "PDF 输出路径")
	configPath := flag.String("config", "", "YAML 配置文件路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	serve := flag.Bool("serve", false, "启动 HTTP 服务而不是生成单个文件")
	flag.Parse()

	if err := start(*configPath, *serve, func(gen *documents.Generator) error {
		if err := run(gen, documents.Kind(*kind), *input, *output, *debug); err != nil {
			return fmt.Errorf("生成 PDF 失败: %w", err)
		}
		fmt.Printf("已生成 PDF：%s\n", *output)
		return nil
	}); err != nil {
		log.Fatal(err)
	}
}

// start 加载配置并组装依赖，serve 为 false 时调用 once 生成单个文件。
// 所有清理都在返回前完成，main 只在这之后退出。
func start(configPath string, serve bool, once func(*documents.Generator) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("创建日志失败: %w", err)
	}
	defer logger.Sync()

	store, err := kvstore.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("打开存储失败: %w", err)
	}
	defer store.Close()
	if r, ok := store.(*kvstore.Redis); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := r.Ping(ctx); err != nil {
			logger.Warn("[Main] Redis unreachable, documents will fail to store", zap.String("host", cfg.Store.Host), zap.Int("port", cfg.Store.Port), zap.Error(err))
		}
		cancel()
	}

	gen, err := newGenerator(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("初始化生成器失败: %w", err)
	}
	if !serve {
		return once(gen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv, err := server.New(server.Options{
		Generator:    gen,
		Store:        store,
		TTL:          cfg.Documents.TTL.Duration,
		MaxBodyBytes: cfg.Documents.MaxBodyBytes,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("创建服务失败: %w", err)
	}
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("服务异常退出: %w", err)
	}
	return nil
}

// newGenerator 按配置组装版式、渲染器与图片解析器。
func newGenerator(cfg config.Config, store kvstore.Store, logger *zap.Logger) (*documents.Generator, error) {
	registry, err := docspec.Builtin()
	if cfg.Documents.SpecsDir != "" {
		registry, err = docspec.LoadDir(cfg.Documents.SpecsDir)
	}
	if err != nil {
		return nil, fmt.Errorf("加载版式失败: %w", err)
	}
	r, err := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Regular: fontResource(cfg.Fonts.Regular),
		Bold:    fontResource(cfg.Fonts.Bold),
	})
	if err != nil {
		return nil, err
	}
	margin, err := cfg.Margin()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	size, err := cfg.PageSize()
	if err != nil {
		return nil, err
	}
	resolver := &assets.Resolver{
		Fetcher:  &assets.HTTPFetcher{MaxBytes: cfg.Assets.MaxBytes, UserAgent: "romaneio"},
		Timeout:  cfg.Assets.Timeout.Duration,
		Cache:    store,
		CacheTTL: cfg.Assets.CacheTTL.Duration,
		Logger:   logger,
	}
	return documents.New(documents.Options{
		Registry:         registry,
		Renderer:         r,
		Assets:           resolver,
		Maps:             cfg.Maps,
		Logger:           logger,
		Location:         loc,
		PageSize:         size,
		Margin:           margin,
		Company:          cfg.Documents.Company,
		LogoURL:          cfg.Documents.LogoURL,
		MaxPhotosPerPage: cfg.Documents.MaxPhotosPerPage,
	})
}

// fontResource 将配置值解析为字体资源，"embed:" 前缀表示内置字体，其余视为文件路径。
func fontResource(v string) canvasrenderer.Resource {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return canvasrenderer.Resource{}
	case strings.HasPrefix(v, "embed:"):
		return canvasrenderer.Resource{Name: v}
	default:
		return canvasrenderer.Resource{Path: v}
	}
}

// run 读取输入、排版并写出 PDF，debugPath 非空时额外输出布局 JSON。
func run(gen *documents.Generator, kind documents.Kind, inputPath, outputPath, debugPath string) error {
	if gen == nil {
		return fmt.Errorf("generator 不能为空")
	}
	raw, err := readInput(inputPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var pdfBytes []byte
	if debugPath == "" {
		pdfBytes, err = gen.Generate(ctx, kind, raw)
	} else {
		// 调试输出与 PDF 使用同一次排版，远程图片只下载一次。
		var doc *layout.Document
		if doc, err = gen.Layout(ctx, kind, raw); err != nil {
			return fmt.Errorf("布局计算失败: %w", err)
		}
		if err := writeDebug(doc, debugPath); err != nil {
			return err
		}
		pdfBytes, err = gen.Render(doc)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func readInput(path string) (json.RawMessage, error) {
	switch path {
	case "":
		return nil, fmt.Errorf("缺少 -in 输入文件")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法打开输入文件 %s: %w", path, err)
		}
		return data, nil
	}
}

func writeDebug(doc *layout.Document, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
