package naming

import (
	"testing"

	"github.com/broady/restproto/protogen/ir"
)

func TestMangle(t *testing.T) {
	tests := []struct {
		name    string
		nesting ir.NestingKind
		want    string
	}{
		{"com.example.User", ir.TopLevel, "com_example___User"},
		{"com.example.Outer$Inner", ir.PublicNested, "com_example_Outer_INNER_Inner"},
		{"com.example.Outer$Inner", ir.HiddenNested, "com_example_Outer_HIDDEN_Inner"},
		{"example.com/shop/api.User", ir.TopLevel, "example_com_shop_api___User"},
		{"example.com/shop/api.user", ir.HiddenNested, "example_com_shop_api_HIDDEN_user"},
		{"User", ir.TopLevel, "___User"},
		{"com.x-y.Thing", ir.TopLevel, "com_x_y___Thing"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Mangle(tt.name, tt.nesting); got != tt.want {
				t.Errorf("Mangle(%q, %v) = %q, want %q", tt.name, tt.nesting, got, tt.want)
			}
		})
	}
}

func TestMangle_NestingOnlyChangesSeparator(t *testing.T) {
	top := Mangle("a.b.C", ir.TopLevel)
	pub := Mangle("a.b.C", ir.PublicNested)
	hid := Mangle("a.b.C", ir.HiddenNested)
	if top != "a_b___C" || pub != "a_b_INNER_C" || hid != "a_b_HIDDEN_C" {
		t.Errorf("got %q %q %q", top, pub, hid)
	}
}

func TestMangleClass(t *testing.T) {
	d := &ir.ClassDescriptor{QualifiedName: "com.example.Outer$Inner", Nesting: ir.PublicNested}
	if got := MangleClass(d); got != "com_example_Outer_INNER_Inner" {
		t.Errorf("MangleClass = %q", got)
	}
}

func TestNames_Resolve(t *testing.T) {
	n := NewNames()
	steps := []struct {
		proposed string
		want     string
	}{
		{"name", "name"},
		{"Name", "Name___1"},
		{"NAME", "NAME___2"},
		{"other", "other"},
		{"name", "name___3"},
		{"first_name", "first_name"},
		{"firstName", "firstName___1"},
		{"name___1", "name___1___1"},
	}
	for _, s := range steps {
		if got := n.Resolve(s.proposed); got != s.want {
			t.Errorf("Resolve(%q) = %q, want %q", s.proposed, got, s.want)
		}
	}
	if !n.Has("OTHER") {
		t.Error("Has should be case-insensitive")
	}
	if n.Has("missing") {
		t.Error("Has(missing) = true")
	}
}

func TestFieldName(t *testing.T) {
	tests := map[string]string{
		"name":       "name",
		"first-name": "first_name",
		"2fa":        "_2fa",
		"a.b":        "a_b",
		"héllo":      "h_llo",
		"":           "_",
		"_x":         "_x",
	}
	for in, want := range tests {
		if got := FieldName(in); got != want {
			t.Errorf("FieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNames_ResolveSanitizes(t *testing.T) {
	n := NewNames()
	if got := n.Resolve("first-name"); got != "first_name" {
		t.Errorf("Resolve(first-name) = %q", got)
	}
	if got := n.Resolve("first_name"); got != "first_name___1" {
		t.Errorf("Resolve(first_name) = %q, want first_name___1", got)
	}
	if got := n.Resolve("2fa"); got != "_2fa" {
		t.Errorf("Resolve(2fa) = %q", got)
	}
	if !n.Has("first-name") {
		t.Error("Has(first-name) = false")
	}
}

func TestNames_Independent(t *testing.T) {
	a, b := NewNames(), NewNames()
	a.Resolve("id")
	if got := b.Resolve("id"); got != "id" {
		t.Errorf("separate name sets should not share state, got %q", got)
	}
}

func TestJSONName(t *testing.T) {
	tests := map[string]string{
		"name":           "name",
		"first_name":     "firstName",
		"a_b_c":          "aBC",
		"trailing_":      "trailing",
		"URL":            "URL",
		"user___1":       "user1",
		"same_site_Mode": "sameSiteMode",
	}
	for in, want := range tests {
		if got := JSONName(in); got != want {
			t.Errorf("JSONName(%q) = %q, want %q", in, got, want)
		}
	}
}
