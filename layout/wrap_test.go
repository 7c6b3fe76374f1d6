package layout

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWrapWidthBound(t *testing.T) {
	font := monoFont{}
	texts := []string{
		"Rua das Acácias, 1200, apartamento 41, bloco C - Jardim Botânico",
		"Entregar somente no período da tarde, procurar o porteiro Sr. João",
		"curto",
		"Extraordinariamente-longa-palavra-sem-espacos e depois texto normal",
		strings.Repeat("palavra ", 60),
	}
	for _, text := range texts {
		for _, width := range []float64{40, 80, 150, 300} {
			lines := Wrap(text, width, font, 10)
			if len(lines) == 0 {
				t.Fatalf("Wrap(%q, %g) 返回空切片", text, width)
			}
			for _, line := range lines {
				w, _ := font.WidthOfTextAtSize(line, 10)
				if w <= width {
					continue
				}
				if strings.Contains(line, " ") {
					t.Fatalf("Wrap(%q, %g): 行 %q 宽 %g 超出限制且不是单个单词", text, width, line, w)
				}
			}
		}
	}
}

func TestWrapNeverEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n", "\t", "\u200b"} {
		got := Wrap(in, 100, monoFont{}, 10)
		if diff := cmp.Diff([]string{""}, got); diff != "" {
			t.Fatalf("Wrap(%q) 结果不符 (-want +got):\n%s", in, diff)
		}
	}
}

func TestWrapKeepsLongWordWhole(t *testing.T) {
	got := Wrap("ab supercalifragilistico cd", 30, monoFont{}, 10)
	want := []string{"ab", "supercalifragilistico", "cd"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("超长单词处理错误 (-want +got):\n%s", diff)
	}
}

func TestWrapSkipsFailingToken(t *testing.T) {
	font := monoFont{failOn: "bad"}
	got := Wrap("one two bad three four", 1000, font, 10)
	want := []string{"one two", "three four"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("测宽失败的单词应被跳过 (-want +got):\n%s", diff)
	}
}

func TestWrapHonorsNewlines(t *testing.T) {
	got := Wrap("linha um\r\n\r\nlinha dois\n", 1000, monoFont{}, 10)
	want := []string{"linha um", "", "linha dois"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("换行处理错误 (-want +got):\n%s", diff)
	}
}

func TestWrapSanitizes(t *testing.T) {
	got := Wrap("Entrega — R$ 10–20", 1000, monoFont{}, 10)
	if diff := cmp.Diff([]string{"Entrega - R$ 10-20"}, got); diff != "" {
		t.Fatalf("Wrap 未清洗文本 (-want +got):\n%s", diff)
	}
}

func TestShortAddressSingleLine(t *testing.T) {
	lines := Wrap("Rua A, 10, Centro, City - ST", 300, monoFont{}, 10)
	if len(lines) != 1 {
		t.Fatalf("短地址应为 1 行, got %d: %q", len(lines), lines)
	}
}

func TestFitReturnsOriginalWhenItFits(t *testing.T) {
	got := Fit("Produto Simples", 200, monoFont{}, 10)
	if got != "Produto Simples" {
		t.Fatalf("Fit 修改了可放下的文本: %q", got)
	}
}

func TestFitKeepsSpacesAndNewlinesWhenItFits(t *testing.T) {
	for _, text := range []string{" Rua A ", "linha1\nlinha2", "\tSKU-1"} {
		if got := Fit(text, 1000, monoFont{}, 10); got != text {
			t.Fatalf("Fit(%q) = %q, 可放下时应原样返回", text, got)
		}
	}
	// 截断路径才会把换行折叠为空格。
	if got := Fit("linha1\nlinha2 linha3", 50, monoFont{}, 10); got != "linha1..." {
		t.Fatalf("Fit 截断 = %q", got)
	}
}

func TestFitTruncatesWithinWidth(t *testing.T) {
	font := monoFont{}
	text := "Cadeira de escritório ergonômica com apoio lombar ajustável"
	for _, width := range []float64{20, 45, 100, 200} {
		got := Fit(text, width, font, 10)
		w, _ := font.WidthOfTextAtSize(got, 10)
		if w > width {
			t.Fatalf("Fit(%g) = %q 宽 %g 超出限制", width, got, w)
		}
		if got != "" && !strings.HasSuffix(got, "...") {
			t.Fatalf("Fit(%g) = %q 缺少省略号", width, got)
		}
	}
	// 宽 100 / 每字符 5 = 20 字符：17 个字符 + "..."
	if got := Fit(text, 100, font, 10); got != "Cadeira de escrit..." {
		t.Fatalf("Fit(100) = %q", got)
	}
}

func TestFitTooNarrowForEllipsis(t *testing.T) {
	if got := Fit("abcdef", 5, monoFont{}, 10); got != "" {
		t.Fatalf("放不下省略号时应返回空串, got %q", got)
	}
}

func TestFitFallsBackOnMeasureFailure(t *testing.T) {
	text := strings.Repeat("x", 80)
	got := Fit(text, 10, brokenFont{}, 10)
	want := strings.Repeat("x", 50) + "..."
	if got != want {
		t.Fatalf("测宽失败时应截取前 50 个字符, got %q", got)
	}
	if got := Fit("curto", 10, brokenFont{}, 10); got != "curto" {
		t.Fatalf("短文本回退应原样返回, got %q", got)
	}
}

func TestTextWidthNeverFails(t *testing.T) {
	if w := TextWidth(brokenFont{}, "abc", 10); w != 0 {
		t.Fatalf("测宽失败应返回 0, got %g", w)
	}
	if w := TextWidth(monoFont{}, "abcd", 10); w != 20 {
		t.Fatalf("TextWidth = %g, want 20", w)
	}
}
