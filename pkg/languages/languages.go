package languages

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
)

type LanguageType int

const (
	JAVA LanguageType = iota + 1
	PYTHON3
	CPP
	JAVASCRIPT
)

func (lt LanguageType) String() string {
	for key, value := range LanguageTypeMap {
		if value == lt {
			return key
		}
	}
	return ""
}

var LanguageTypeMap = map[string]LanguageType{
	"JAVA":       JAVA,
	"PYTHON3":    PYTHON3,
	"CPP":        CPP,
	"JAVASCRIPT": JAVASCRIPT,
}

// Profile describes how a language is laid out in the workspace and executed in the sandbox.
// Command runs with the read-only code directory as working directory; compiled
// languages build into the writable scratch directory.
type Profile struct {
	Type     LanguageType
	Name     string
	FileName string
	Command  []string
	Compiled bool
}

// LanguageSpec is the handshake description of a supported language.
type LanguageSpec struct {
	LanguageName string `json:"name"`
	Extension    string `json:"extension"`
	Compiled     bool   `json:"compiled"`
}

var profiles = map[LanguageType]Profile{
	JAVA: {
		Type:     JAVA,
		Name:     "Java",
		FileName: "Solution.java",
		Command: compileThenRun(
			"javac -d "+constants.ContainerScratchDir+" Solution.java",
			"exec java -cp "+constants.ContainerScratchDir+" Solution",
		),
		Compiled: true,
	},
	PYTHON3: {
		Type:     PYTHON3,
		Name:     "Python 3",
		FileName: "solution.py",
		Command:  []string{"python3", "solution.py"},
	},
	CPP: {
		Type:     CPP,
		Name:     "C++",
		FileName: "solution.cpp",
		Command: compileThenRun(
			"g++ -O2 -o "+constants.ContainerScratchDir+"/solution solution.cpp",
			"exec "+constants.ContainerScratchDir+"/solution",
		),
		Compiled: true,
	},
	JAVASCRIPT: {
		Type:     JAVASCRIPT,
		Name:     "JavaScript",
		FileName: "solution.js",
		Command:  []string{"node", "solution.js"},
	},
}

func compileThenRun(build, run string) []string {
	script := fmt.Sprintf("%s || { echo '%s' >&2; exit 1; }; %s", build, constants.CompilationFailedMarker, run)
	return []string{"sh", "-c", script}
}

func ParseLanguageType(s string) (LanguageType, error) {
	if lt, ok := LanguageTypeMap[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return lt, nil
	}
	return 0, errors.ErrUnsupportedLanguage
}

// Resolve returns the profile registered for the language identifier.
func Resolve(language string) (Profile, error) {
	lt, err := ParseLanguageType(language)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s", err, language)
	}
	profile, ok := profiles[lt]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", errors.ErrUnsupportedLanguage, language)
	}
	return profile, nil
}

func GetSupportedLanguages() []string {
	languages := make([]string, 0, len(LanguageTypeMap))
	for lang := range LanguageTypeMap {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

func GetSupportedLanguageSpecs() []LanguageSpec {
	specs := make([]LanguageSpec, 0, len(profiles))
	for _, name := range GetSupportedLanguages() {
		profile := profiles[LanguageTypeMap[name]]
		specs = append(specs, LanguageSpec{
			LanguageName: name,
			Extension:    strings.TrimPrefix(filepath.Ext(profile.FileName), "."),
			Compiled:     profile.Compiled,
		})
	}
	return specs
}
