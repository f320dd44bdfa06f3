package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

const (
	// MatchThreshold is the minimum normalized similarity for each name.
	MatchThreshold = 0.85

	// MaxCandidates caps the number of search results.
	MaxCandidates = 5
)

// Demographics are the search criteria. FirstName, LastName and DOB are
// required; ZipCode is an optional additional filter.
type Demographics struct {
	FirstName string
	LastName  string
	DOB       models.Date
	ZipCode   string
}

// Candidate is a patient matched by demographic search.
type Candidate struct {
	Patient    *models.Patient
	Confidence float64
}

// SearchPatients resolves a patient from demographics. DOB must match
// exactly; names must each reach MatchThreshold. Partial criteria never
// match anything.
func (s *VerificationService) SearchPatients(ctx context.Context, practiceID string, q Demographics) ([]Candidate, error) {
	first, last := normalizeName(q.FirstName), normalizeName(q.LastName)
	if first == "" || last == "" || q.DOB.IsZero() {
		return []Candidate{}, nil
	}

	patients, err := s.store.FindPatientsByDOB(ctx, practiceID, q.DOB)
	if err != nil {
		return nil, fmt.Errorf("find patients: %w", err)
	}

	// a supplied ZIP always filters; one that does not normalize matches nobody
	filterZip := strings.TrimSpace(q.ZipCode) != ""
	zip := zip5(q.ZipCode)
	if filterZip && zip == "" {
		return []Candidate{}, nil
	}

	candidates := []Candidate{}
	for _, p := range patients {
		if !p.DateOfBirth.Equal(q.DOB) {
			continue
		}
		if filterZip && zip5(p.Address.ZipCode) != zip {
			continue
		}
		fs := similarity(first, normalizeName(p.FirstName))
		ls := similarity(last, normalizeName(p.LastName))
		if fs < MatchThreshold || ls < MatchThreshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Patient:    p,
			Confidence: math.Round((fs+ls)/2*100) / 100,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Patient.ID < candidates[j].Patient.ID
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates, nil
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// zip5 returns the leading five digits of a ZIP or ZIP+4 code, or "" when
// the code does not start with five digits.
func zip5(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return ""
	}
	for _, c := range s[:5] {
		if c < '0' || c > '9' {
			return ""
		}
	}
	if len(s) > 5 && s[5] != '-' {
		return ""
	}
	return s[:5]
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), over runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}
