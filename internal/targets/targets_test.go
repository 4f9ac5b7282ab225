package targets

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCSVWithHeader(t *testing.T) {
	in := "company,url\nAcme,https://acme.example/jobs\nGlobex,https://globex.example/careers\n"
	got, err := parseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	want := []Target{
		{Company: "Acme", URL: "https://acme.example/jobs"},
		{Company: "Globex", URL: "https://globex.example/careers"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseCSV = %+v, want %+v", got, want)
	}
}

func TestParseCSVWithoutHeader(t *testing.T) {
	in := "Acme,https://acme.example/jobs\nGlobex,https://globex.example/careers\n"
	got, err := parseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(got) != 2 || got[0].Company != "Acme" {
		t.Fatalf("parseCSV = %+v, want 2 rows starting with Acme", got)
	}
}

func TestParseCSVSkipsBlankLinesAndShortRows(t *testing.T) {
	in := "company,url\n\nAcme,https://acme.example/jobs\nbadrow\n  ,  \n"
	got, err := parseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(got) != 1 || got[0].Company != "Acme" {
		t.Fatalf("parseCSV = %+v, want 1 row (Acme)", got)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	got, err := parseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if got != nil {
		t.Fatalf("parseCSV(empty) = %v, want nil", got)
	}
}
