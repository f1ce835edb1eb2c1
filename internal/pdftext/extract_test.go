package pdftext

import (
	"errors"
	"testing"

	"coeus/internal/util"
)

func TestCleanStripsMarkersAndKeepsOrder(t *testing.T) {
	text, visuals, err := Clean("Hello ![img](x) World ![fig 2](y.png) end")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello World end" {
		t.Fatalf("unexpected clean text: %q", text)
	}
	if len(visuals) != 2 || visuals[0] != "![img](x)" || visuals[1] != "![fig 2](y.png)" {
		t.Fatalf("unexpected visuals: %#v", visuals)
	}
}

func TestCleanMarkerOnlyInputFails(t *testing.T) {
	_, _, err := Clean("![img](x) \n\n\n")
	if !errors.Is(err, util.ErrNoTextFound) {
		t.Fatalf("expected ErrNoTextFound, got %v", err)
	}
}

func TestCleanCollapsesNewlineRuns(t *testing.T) {
	text, _, err := Clean("para one\n\n\n\n\npara two")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "para one\n\npara two" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsGarbageBytes(t *testing.T) {
	_, _, err := Extract([]byte("not a pdf at all"))
	if err == nil {
		t.Fatal("expected an extraction error for non-PDF bytes")
	}
}
