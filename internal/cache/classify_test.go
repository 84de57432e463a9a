package cache

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"/home/dev/project/node_modules", KindJavaScript},
		{"/home/dev/project/.next", KindJavaScript},
		{"/home/dev/project/.parcel-cache", KindJavaScript},
		{"/home/dev/project/__pycache__", KindPython},
		{"/home/dev/project/.venv", KindPython},
		{"/home/dev/project/.mypy_cache", KindPython},
		{"/home/dev/project/target", KindRust},
		{"/home/dev/.cargo/registry", KindRust},
		{"/home/dev/.gradle/caches", KindJava},
		{"/home/dev/.m2/repository", KindJava},
		{"/home/dev/gradle-app/build", KindJava},
		{"/home/dev/.cache/huggingface/hub", KindMachineLearning},
		{"/home/dev/.cache/torch/checkpoints", KindMachineLearning},
		{"/home/dev/project/wandb", KindMachineLearning},
		{"/home/dev/.npm/_npx/abc123", KindNpx},
		{"docker://images", KindDocker},
		{"/tmp/scratch", KindGeneric},
		{"/home/dev/project/build", KindGeneric},
	}

	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	paths := []string{"/a/node_modules", "/b/__pycache__", "/c/nothing"}
	for _, p := range paths {
		if Classify(p) != Classify(p) {
			t.Fatalf("Classify(%q) not deterministic", p)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	if got := Classify("/home/dev/NODE_MODULES"); got != KindJavaScript {
		t.Errorf("uppercase marker: got %q, want %q", got, KindJavaScript)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// "target" and "docker" can co-occur; Rust is tested first and wins.
	if got := Classify("/srv/docker-builds/target"); got != KindRust {
		t.Errorf("priority: got %q, want %q", got, KindRust)
	}
}

func TestParseLanguageFilter(t *testing.T) {
	cases := []struct {
		in      string
		want    LanguageFilter
		wantErr bool
	}{
		{"auto", FilterAuto, false},
		{"", FilterAuto, false},
		{"js", FilterJavaScript, false},
		{"javascript", FilterJavaScript, false},
		{"PY", FilterPython, false},
		{"rust", FilterRust, false},
		{"ml", FilterMachineLearning, false},
		{"fortran", "", true},
	}

	for _, tc := range cases {
		got, err := ParseLanguageFilter(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLanguageFilter(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLanguageFilter(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLanguageFilter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	if !FilterAuto.Matches(KindDocker) {
		t.Error("auto filter should match every kind")
	}
	if !FilterJavaScript.Matches(KindJavaScript) {
		t.Error("js filter should match js kind")
	}
	if FilterJavaScript.Matches(KindPython) {
		t.Error("js filter should not match py kind")
	}
}
