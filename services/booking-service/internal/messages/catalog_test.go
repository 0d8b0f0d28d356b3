package messages

import (
	"testing"

	"github.com/citaplus/citaplus/services/booking-service/internal/wizard"
)

func TestBundledCoversWizardKeys(t *testing.T) {
	c := Bundled()
	keys := []string{
		wizard.MsgBusinessRequired, wizard.MsgLocationRequired, wizard.MsgServiceRequired,
		wizard.MsgEmployeeRequired, wizard.MsgEmployeeBusinessRequired, wizard.MsgDateTimeRequired,
		wizard.MsgInvalidTime, wizard.MsgInvalidDate, wizard.MsgMissingClient,
		wizard.MsgEmployeeServiceMismatch, wizard.MsgEmployeeWithoutBusiness,
		wizard.MsgEmployeeBusinessesFailed, wizard.MsgSaveFailed, wizard.MsgBooked, wizard.MsgUpdated,
	}
	for _, lang := range []string{"es", "en"} {
		tr := c.Translator(lang)
		for _, k := range keys {
			if got := tr.Translate(k); got == k || got == "" {
				t.Fatalf("missing %s translation for %s", lang, k)
			}
		}
	}
}

func TestTranslatorFallbacks(t *testing.T) {
	c, err := Load([]byte("es:\n  greeting: hola\nen:\n  greeting: hello\n  farewell: bye\n"), "es")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Translator("en-US,en;q=0.9").Translate("greeting"); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if got := c.Translator("fr").Translate("greeting"); got != "hola" {
		t.Fatalf("expected fallback hola, got %q", got)
	}
	if got := c.Translator("es").Translate("farewell"); got != "farewell" {
		t.Fatalf("expected key echoed, got %q", got)
	}
	if _, err := Load([]byte("en:\n  a: b\n"), "es"); err == nil {
		t.Fatal("expected error when fallback section is missing")
	}
}
