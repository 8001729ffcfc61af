package review

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"hukudok/internal/codec"
	"hukudok/internal/entitycode"
	"hukudok/internal/metadata"
)

func sampleDocument() *metadata.Document {
	return &metadata.Document{
		Date:         "15.03.2024",
		DocumentType: "dilekce",
		Client:       "Ahmet Yılmaz",
		Clients:      []string{"Ahmet Yılmaz", "AHMET YILMAZ", "Ayşe Kaya"},
		CaseNumber:   "Esas No: 2024/123",
		Lawyer:       "nhh",
		Status:       "d",
		OfficeFile:   "000000042",
		Hash:         "a1b2c3d4e5f6",
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(sampleDocument(), nil)

	for _, f := range codec.ApprovalFields() {
		want := f == codec.FieldOfficeFile || f == codec.FieldReserved1 || f == codec.FieldReserved2
		if s.Approved(f) != want {
			t.Errorf("Approved(%s) = %v, want %v", f, s.Approved(f), want)
		}
	}
	if s.Ready() {
		t.Error("new session must not be ready")
	}
	if got := s.Clients(); !reflect.DeepEqual(got, []string{"Ahmet Yılmaz", "Ayşe Kaya"}) {
		t.Errorf("Clients() = %v", got)
	}
}

func TestNewSeedsPrimaryClient(t *testing.T) {
	s := New(&metadata.Document{Client: "Ayşe Kaya"}, nil)
	if got := s.Clients(); !reflect.DeepEqual(got, []string{"Ayşe Kaya"}) {
		t.Errorf("Clients() = %v", got)
	}

	s = New(nil, nil)
	if len(s.Clients()) != 0 {
		t.Errorf("expected no clients, got %v", s.Clients())
	}
}

func TestApproveFormatsValue(t *testing.T) {
	s := New(&metadata.Document{Client: "axa"}, nil)

	approved, err := s.Approve(codec.FieldClient)
	if err != nil {
		t.Fatal(err)
	}
	if got := approved.Value(codec.FieldClient); got != "AXA-SIGORTA---" {
		t.Errorf("approved value = %q, want AXA-SIGORTA---", got)
	}
	if got := s.Value(codec.FieldClient); got != "axa" {
		t.Errorf("receiver changed: %q", got)
	}

	// Un-approving keeps the formatted text.
	back, err := approved.Unapprove(codec.FieldClient)
	if err != nil {
		t.Fatal(err)
	}
	if back.Approved(codec.FieldClient) {
		t.Error("field still approved")
	}
	if got := back.Value(codec.FieldClient); got != "AXA-SIGORTA---" {
		t.Errorf("unapproved value = %q", got)
	}
}

func TestApproveUsesCodecTables(t *testing.T) {
	tables := entitycode.DefaultTables().Extend(entitycode.Tables{
		Aliases: []entitycode.Alias{{Fragment: "YILDIZ SIGORTA", Code: "YLDZ-SIG"}},
	})
	c := codec.New(codec.DefaultLayout(), codec.NewFormatter(entitycode.NewEncoder(tables)))
	s := New(&metadata.Document{Client: "Yıldız Sigorta A.Ş."}, c)

	preview := s.ApplyApproval(codec.FieldClient, s.Value(codec.FieldClient))
	if !strings.HasPrefix(preview, "YLDZ-SIG") {
		t.Errorf("ApplyApproval = %q, want the configured alias", preview)
	}
	if builtin := codec.ApplyApproval(codec.FieldClient, s.Value(codec.FieldClient)); builtin == preview {
		t.Errorf("built-in tables gave the alias code too: %q", builtin)
	}

	approved, err := s.Approve(codec.FieldClient)
	if err != nil {
		t.Fatal(err)
	}
	if got := approved.Value(codec.FieldClient); got != preview {
		t.Errorf("Approve stored %q, ApplyApproval gave %q", got, preview)
	}
}

func TestApproveCaseNumberStoresCanonicalForm(t *testing.T) {
	s, err := New(sampleDocument(), nil).Approve(codec.FieldCaseNumber)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Value(codec.FieldCaseNumber); got != "2024/123" {
		t.Errorf("stored case number = %q", got)
	}
	if got := s.Filename().Segment(codec.FieldCaseNumber); got != "24-00123" {
		t.Errorf("case segment = %q", got)
	}
}

func TestEdit(t *testing.T) {
	s := New(sampleDocument(), nil)

	edited, err := s.Edit(codec.FieldLawyer, "ayk")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Value(codec.FieldLawyer) != "ayk" || s.Value(codec.FieldLawyer) != "nhh" {
		t.Error("Edit must return a new session and leave the receiver alone")
	}

	if _, err := s.Edit(codec.FieldOfficeFile, "1"); !errors.Is(err, ErrFieldApproved) {
		t.Errorf("expected ErrFieldApproved, got %v", err)
	}
	if _, err := s.Edit(codec.FieldHash, "1"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if _, err := s.Approve(codec.Field("nope")); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestClientList(t *testing.T) {
	s := New(sampleDocument(), nil)

	s = s.AddClient("  ")
	s = s.AddClient("ayşe kaya")
	if got := len(s.Clients()); got != 2 {
		t.Fatalf("blank or duplicate names were added: %v", s.Clients())
	}

	s = s.AddClient("Mehmet Öz")
	if got := s.Filename().Segment(codec.FieldClient); got[len(got)-2:] != "_3" {
		t.Errorf("client segment = %q, want suffix _3", got)
	}

	s = s.RemoveClient("AHMET YILMAZ")
	if got := s.Clients(); !reflect.DeepEqual(got, []string{"Ayşe Kaya", "Mehmet Öz"}) {
		t.Errorf("Clients() = %v", got)
	}

	approved, _ := s.Approve(codec.FieldClient)
	selected := approved.SelectClient("Veli Demir")
	if selected.Approved(codec.FieldClient) {
		t.Error("selecting a client must clear the approval")
	}
	if selected.Value(codec.FieldClient) != "Veli Demir" {
		t.Errorf("client value = %q", selected.Value(codec.FieldClient))
	}
	if len(selected.Clients()) != 3 || len(approved.Clients()) != 2 {
		t.Errorf("unexpected lists: %v / %v", selected.Clients(), approved.Clients())
	}
}

func TestReady(t *testing.T) {
	s := New(sampleDocument(), nil).ApproveAll()
	if !s.Ready() {
		t.Fatalf("expected ready, pending %v", s.Pending())
	}
	if err := s.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}

	want := "240315_DILEKCE________A_YILMAZ_______2_24-00123_NHH_D_000000042_-_--_A1B2C3"
	if got := s.Filename().String(); got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}

	doc := s.Document()
	if doc.Client != "A_YILMAZ______" || doc.CaseNumber != "2024/123" || doc.Date != "240315" {
		t.Errorf("unexpected corrected metadata: %+v", doc)
	}
	if doc.Hash != "a1b2c3d4e5f6" {
		t.Errorf("hash changed: %q", doc.Hash)
	}

	notReady, _ := s.Unapprove(codec.FieldStatus)
	var serr *codec.SubmitError
	if err := notReady.Check(); !errors.As(err, &serr) || serr.Type != codec.NotReady {
		t.Errorf("expected NotReady, got %v", err)
	}
}

func TestReset(t *testing.T) {
	s := New(sampleDocument(), nil).ApproveAll().AddClient("Mehmet Öz")
	fresh := s.Reset(&metadata.Document{Client: "Zeynep Ak"})
	if fresh.Ready() || !reflect.DeepEqual(fresh.Clients(), []string{"Zeynep Ak"}) {
		t.Errorf("Reset kept state: ready=%v clients=%v", fresh.Ready(), fresh.Clients())
	}
}

func TestReadyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	fields := codec.ApprovalFields()

	properties.Property("any unapproved field blocks readiness", prop.ForAll(
		func(i int) bool {
			s, err := New(sampleDocument(), nil).ApproveAll().Unapprove(fields[i])
			return err == nil && !s.Ready() && len(s.Pending()) == 1 && s.Pending()[0] == fields[i]
		},
		gen.IntRange(0, len(fields)-1),
	))

	properties.Property("filenames are deterministic", prop.ForAll(
		func(i int) bool {
			s, _ := New(sampleDocument(), nil).Approve(fields[i])
			return s.Filename().String() == s.Filename().String()
		},
		gen.IntRange(0, len(fields)-1),
	))

	properties.TestingRun(t)
}
