package entitycode

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNameToCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"two-token person", "Ahmet Yılmaz", "A_YILMAZ______"},
		{"middle names use last token", "Nihan Hilal Hoşağası", "N_HOSAGASI____"},
		{"titles removed", "Prof. Dr. Ayşe Gül Hanyaloğlu", "A_HANYALOGLU__"},
		{"title glued by dot", "Av.Mehmet Öztürk", "M_OZTURK______"},
		{"single token person", "Cengiz", "CENGIZ________"},
		{"long surname truncated", "Ali Abdurrahmangazioğulları", "A_ABDURRAHMANG"},
		{"insurer alias", "AXA Sigorta A.Ş.", "AXA-SIGORTA---"},
		{"insurer alias lower case", "axa", "AXA-SIGORTA---"},
		{"multi-word insurer alias", "Türkiye Sigorta A.Ş.", "TURKIYE-SIG---"},
		{"generic company slug", "Yılmaz İnşaat Ltd. Şti.", "YILMAZ-INSAAT-"},
		{"short company padded", "Kar LTD", "KAR-LTD-------"},
		{"empty", "", Sentinel},
		{"whitespace only", "   \t ", Sentinel},
		{"only titles", "Dr. Av.", Sentinel},
		{"only punctuation", "...", Sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameToCode(tt.input)
			if got != tt.want {
				t.Errorf("NameToCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := Classify("Ahmet Yılmaz"); got != KindPerson {
		t.Errorf("expected person, got %s", got)
	}
	if got := Classify("Allianz Sigorta"); got != KindCompany {
		t.Errorf("expected company, got %s", got)
	}
	// Substring classification is documented behaviour: a surname containing
	// an insurer token is treated as a company.
	if got := Classify("Mehmet Saxalı"); got != KindCompany {
		t.Errorf("expected substring match to classify as company, got %s", got)
	}
}

func TestExtendedTables(t *testing.T) {
	tables := DefaultTables().Extend(Tables{
		CompanyTokens: []string{"vakfı"},
		Titles:        []string{"hakim"},
		Aliases:       []Alias{{Fragment: "axa hayat", Code: "axa-hayat"}},
	})
	enc := NewEncoder(tables)

	if got := enc.Code("AXA Hayat ve Emeklilik"); got != "AXA-HAYAT-----" {
		t.Errorf("override alias: got %q", got)
	}
	if got := enc.Code("AXA Sigorta"); got != "AXA-SIGORTA---" {
		t.Errorf("built-in alias: got %q", got)
	}
	if got := enc.Code("Eğitim Vakfı"); got != "EGITIM-VAKFI--" {
		t.Errorf("extra company token: got %q", got)
	}
	if got := enc.Code("Hakim Selin Kaya"); got != "S_KAYA________" {
		t.Errorf("extra title: got %q", got)
	}

	// The defaults are not modified by Extend.
	if got := NameToCode("Hakim Selin Kaya"); got != "H_KAYA________" {
		t.Errorf("default encoder changed: got %q", got)
	}
}

func TestEncoderWithoutTitles(t *testing.T) {
	enc := NewEncoder(Tables{})
	if got := enc.Code("Dr Ahmet Yılmaz"); got != "D_YILMAZ______" {
		t.Errorf("got %q", got)
	}
}

func genName() gopter.Gen {
	return gen.OneGenOf(
		gen.AnyString(),
		gen.AlphaString(),
		gen.OneConstOf("", " ", "Ahmet Yılmaz", "AXA Sigorta A.Ş.", "Şükrü Öğüt Ltd. Şti.", "Dr. İlke", "ıııııııııııııııııııı"),
		gen.SliceOf(gen.AlphaString()).Map(func(parts []string) string {
			return strings.Join(parts, " ")
		}),
	)
}

func TestNameToCodeWidth(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("codes are always 14 ASCII characters", prop.ForAll(
		func(name string) bool {
			code := NameToCode(name)
			return len(code) == Width && utf8.RuneCountInString(code) == Width
		},
		genName(),
	))

	properties.Property("codes are deterministic", prop.ForAll(
		func(name string) bool {
			return NameToCode(name) == NameToCode(name)
		},
		genName(),
	))

	properties.TestingRun(t)
}
