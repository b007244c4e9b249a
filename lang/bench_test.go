package lang

import (
	"context"
	"strings"
	"testing"
)

var benchSource = strings.Repeat(`<section>
<!--{ def "row" $i { print(("<tr><td>" + $i) + "</td></tr>"); }; }-->
<table><!--{ for { $i = 0; } { $i < 20; } { $i = $i + 1; } { row($i); } }--></table>
</section>
`, 4)

func BenchmarkScan(b *testing.B) {
	for b.Loop() {
		if _, err := Scan(`$a = 1; if $a > 0 { print("x" + $a); } else { print(0x1F); }`, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompile(b *testing.B) {
	for b.Loop() {
		if _, err := Compile(benchSource, "bench.nim"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender_Cached(b *testing.B) {
	engine := New()
	ctx := context.Background()

	for b.Loop() {
		if _, err := engine.Render(ctx, benchSource, "bench.nim"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender_Uncached(b *testing.B) {
	engine := New(WithCache(false))
	ctx := context.Background()

	for b.Loop() {
		if _, err := engine.Render(ctx, benchSource, "bench.nim"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender_Parallel(b *testing.B) {
	engine := New()
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Render(ctx, benchSource, "bench.nim"); err != nil {
				b.Error(err)

				return
			}
		}
	})
}
