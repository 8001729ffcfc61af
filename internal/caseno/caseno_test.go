package caseno

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"slash", "2024/123", "24-00123"},
		{"dash", "2024-123", "24-00123"},
		{"whitespace", "2024 123", "24-00123"},
		{"zero padded input", "2024-00123", "24-00123"},
		{"two-digit year", "24/123", "24-00123"},
		{"long sequence kept whole", "2024/1234567", "24-1234567"},
		{"labelled esas", "Esas No: 2023/145 Karar No: 2024/456", "23-00145"},
		{"labelled esas after karar", "Karar No: 2024/456 Esas No: 2023/145", "23-00145"},
		{"trailing esas label", "2023/145 Esas", "23-00145"},
		{"short E label", "E. 2024/67", "24-00067"},
		{"short E label after K label", "K. 2024/10 E. 2023/5", "23-00005"},
		{"fallback keeps text", "abc", "ABC"},
		{"fallback replaces slashes", "şube/ç", "SUBE-C"},
		{"fallback replaces unsafe characters", `no: 12 *x\y?`, "NO__12__X_Y_"},
		{"empty", "", Sentinel},
		{"blank", "   ", Sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.input)
			if got != tt.want {
				t.Errorf("Segment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024/123", "2024/123"},
		{"2024-00123", "2024/123"},
		{"24/7", "2024/7"},
		{"Esas No: 2023/145", "2023/145"},
		{"yok", "YOK"},
		{"", Sentinel},
	}
	for _, tt := range tests {
		if got := Canonical(tt.input); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	n, ok := Find("T.C. İSTANBUL 5. ASLİYE HUKUK MAHKEMESİ ESAS NO : 2022/ 881")
	if !ok {
		t.Fatal("expected a case number")
	}
	if n.Year != 2022 || n.Sequence != 881 {
		t.Errorf("got %+v", n)
	}

	if _, ok := Find("dilekçe"); ok {
		t.Error("expected no case number")
	}
}

func TestSegmentIdempotent(t *testing.T) {
	for _, in := range []string{"2024/123", "24-00123", "Esas No: 2023/145", "abc", ""} {
		once := Segment(in)
		if twice := Segment(once); twice != once {
			t.Errorf("Segment(Segment(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestSegmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("YYYY/N renders as YY-NNNNN", prop.ForAll(
		func(year, seq int) bool {
			got := Segment(fmt.Sprintf("%04d/%d", year, seq))
			return got == fmt.Sprintf("%02d-%05d", year%100, seq)
		},
		gen.IntRange(1990, 2035),
		gen.IntRange(0, 99999),
	))

	properties.Property("segment is stable under re-rendering", prop.ForAll(
		func(year, seq int) bool {
			once := Segment(fmt.Sprintf("%d/%d", year, seq))
			return Segment(once) == once && Canonical(once) == fmt.Sprintf("%04d/%d", year, seq)
		},
		gen.IntRange(2000, 2035),
		gen.IntRange(0, 99999),
	))

	properties.TestingRun(t)
}
