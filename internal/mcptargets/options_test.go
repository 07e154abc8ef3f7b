package mcptargets

import "testing"

func TestValidateOptionsAllowsEmptyLists(t *testing.T) {
	if err := ValidateOptions(QueueOptions{}); err != nil {
		t.Fatalf("expected no error for empty options, got %v", err)
	}
}

func TestValidateOptionsAcceptsKnownSerpEngines(t *testing.T) {
	opts := QueueOptions{SerpEngines: []string{"google", "bing", "duckduckgo"}}
	if err := ValidateOptions(opts); err != nil {
		t.Fatalf("expected no error for known serp engines, got %v", err)
	}
}

func TestValidateOptionsRejectsUnknownSerpEngine(t *testing.T) {
	opts := QueueOptions{SerpEngines: []string{"yahoo"}}
	if err := ValidateOptions(opts); err == nil {
		t.Fatal("expected an error for an unrecognized serp engine")
	}
}

func TestValidateOptionsAcceptsKnownAcademicAPIs(t *testing.T) {
	opts := QueueOptions{AcademicAPIs: []string{"semantic_scholar", "openalex"}}
	if err := ValidateOptions(opts); err != nil {
		t.Fatalf("expected no error for known academic apis, got %v", err)
	}
}

func TestValidateOptionsRejectsUnknownAcademicAPI(t *testing.T) {
	opts := QueueOptions{AcademicAPIs: []string{"pubmed"}}
	if err := ValidateOptions(opts); err == nil {
		t.Fatal("expected an error for an unrecognized academic api")
	}
}

func TestValidateOptionsChecksBothListsTogether(t *testing.T) {
	opts := QueueOptions{SerpEngines: []string{"google"}, AcademicAPIs: []string{"bogus"}}
	if err := ValidateOptions(opts); err == nil {
		t.Fatal("expected an error when the academic api list contains an unknown entry")
	}
}
