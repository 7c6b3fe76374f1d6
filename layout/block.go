package layout

// Fragment 是测量阶段产出的可绘制片段。
// Draw 闭包持有测量时得到的折行结果，绘制阶段不会重新折行；
// top 为片段顶部的 y 坐标，片段必须只在 [top-Height, top] 范围内绘制。
type Fragment struct {
	Name   string
	Height float64
	// KeepWithNext 要求该片段与下一个片段位于同一页（例如分组标题）。
	KeepWithNext bool
	Draw         func(p *Page, top float64)
}

// Plan 是一条记录的测量结果。
// Head 原子绘制；Rows 可在行间分页，分页后先绘制 Continuation；
// Tail 中每个片段各自原子，分页后先绘制 TailContinuation。
type Plan struct {
	Head             []Fragment
	Rows             []Fragment
	Tail             []Fragment
	Continuation     []Fragment
	TailContinuation []Fragment
}

// Height 返回 Head、Rows、Tail 的总高度（不含续页片段）。
// 累加顺序与 Place 的绘制顺序一致，未分页时两者逐位相等。
func (pl Plan) Height() float64 {
	total := 0.0
	for _, group := range [][]Fragment{pl.Head, pl.Rows, pl.Tail} {
		for _, f := range group {
			total += f.Height
		}
	}
	return total
}

// Append 将片段追加到 Tail。
func (pl *Plan) Append(frags ...Fragment) {
	pl.Tail = append(pl.Tail, frags...)
}

func sumHeights(frags []Fragment) float64 {
	total := 0.0
	for _, f := range frags {
		total += f.Height
	}
	return total
}

// Placement 描述一次 Place 的结果。
// Consumed 为各页游标下移距离之和（含续页片段）；Breaks 为记录内部分页次数。
type Placement struct {
	FirstPage int
	LastPage  int
	Consumed  float64
	Breaks    int
}

// Place 绘制一条记录。
// 当前页放不下整条记录且当前页已有内容时，先换页再开始绘制；
// 记录内部的行与尾部片段逐个检查剩余空间，放不下时换页并绘制续页片段。
// 换页后至少放置一个片段才会再次换页，超高片段不会导致无限换页。
func (d *Document) Place(plan Plan) Placement {
	page := d.Current()
	if !page.Fits(plan.Height()) && !page.Fresh() {
		page = d.AddPage()
	}
	result := Placement{FirstPage: page.Number()}

	draw := func(f Fragment) {
		top := page.Cursor()
		if f.Draw != nil {
			f.Draw(page, top)
		}
		page.Advance(f.Height)
		result.Consumed += f.Height
	}

	for _, f := range plan.Head {
		draw(f)
	}

	placedSinceBreak := true
	flow := func(frags, continuation []Fragment) {
		for i, f := range frags {
			need := f.Height
			if f.KeepWithNext && i+1 < len(frags) {
				need += frags[i+1].Height
			}
			if !page.Fits(need) && !page.Fresh() && placedSinceBreak {
				page = d.AddPage()
				result.Breaks++
				for _, c := range continuation {
					draw(c)
				}
				placedSinceBreak = false
			}
			draw(f)
			if !f.KeepWithNext {
				placedSinceBreak = true
			}
		}
	}
	flow(plan.Rows, plan.Continuation)
	flow(plan.Tail, plan.TailContinuation)

	result.LastPage = page.Number()
	return result
}
