package detect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"caregate/internal/domain"
)

// Attributes runs the full attribute-detection pass over one message and
// returns the partial profile update it implies. Pure function; fields
// without a signal stay zero-valued.
func Attributes(text string) domain.ProfileUpdate {
	normalized := Normalize(text)

	upd := domain.ProfileUpdate{
		Language:           LanguageOf(text),
		HealthConditions:   Conditions(normalized),
		CommunicationStyle: styleOf(normalized),
	}
	upd.AgeGroup, upd.AgeExplicit = AgeGroupOf(normalized)
	return upd
}

// Explicit age statements: "i am 15", "i'm 72 years old", "tôi 15 tuổi",
// "15 tuổi". A stated age overrides cluster inference.
var explicitAgePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bi a?m (\d{1,3})\b`), // "i am 15" and the normalized "i m 15"
	regexp.MustCompile(`\bim (\d{1,3})\b`),
	regexp.MustCompile(`\b(\d{1,3}) years old\b`),
	regexp.MustCompile(`\btôi (\d{1,3}) tuổi\b`),
	regexp.MustCompile(`\b(\d{1,3}) tuổi\b`),
}

// AgeGroupOf infers an age group from normalized text. Numeric age, when
// present, wins over vocabulary clusters.
func AgeGroupOf(normalized string) (domain.AgeGroup, bool) {
	for _, re := range explicitAgePatterns {
		m := re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		age, err := strconv.Atoi(m[1])
		if err != nil || age <= 0 || age > 120 {
			continue
		}
		return bucketAge(age), true
	}

	// Clusters are checked in their fixed priority order so a message
	// touching several clusters resolves deterministically.
	for _, cluster := range ageClusterTerms {
		for _, term := range cluster.terms {
			if hasTerm(normalized, Normalize(term)) {
				return domain.AgeGroup(cluster.group), false
			}
		}
	}
	return domain.AgeUnknown, false
}

func bucketAge(age int) domain.AgeGroup {
	switch {
	case age < 13:
		return domain.AgeChild
	case age < 20:
		return domain.AgeTeen
	case age < 65:
		return domain.AgeAdult
	default:
		return domain.AgeElderly
	}
}

// Conditions returns the canonical health conditions mentioned in
// normalized text, sorted, idempotently detectable across turns.
func Conditions(normalized string) []string {
	var found []string
	for condition, terms := range conditionTerms {
		for _, term := range terms {
			if hasTerm(normalized, Normalize(term)) {
				found = append(found, condition)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

// vietnameseRunes marks letters unique to Vietnamese orthography.
const vietnameseRunes = "ăâàảãáạằẳẵắặầẩẫấậđèẻẽéẹềểễếệìỉĩíịòỏõóọôồổỗốộơờởỡớợùủũúụưừửữứựỳỷỹýỵ"

// LanguageOf infers the message language from character-set ratios.
// Messages mixing both vocabularies map to LanguageAuto rather than
// forcing a single language. Fewer than three words is no signal.
func LanguageOf(text string) domain.Language {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 3 {
		return ""
	}

	marked := 0
	for _, w := range words {
		if strings.ContainsAny(w, vietnameseRunes) {
			marked++
		}
	}

	ratio := float64(marked) / float64(len(words))
	switch {
	case ratio >= 0.5:
		return domain.LanguageVI
	case ratio > 0.1:
		return domain.LanguageAuto
	default:
		return domain.LanguageEN
	}
}

// HasVietnameseScript reports whether any Vietnamese-specific rune appears.
func HasVietnameseScript(text string) bool {
	for _, r := range text {
		if strings.ContainsRune(vietnameseRunes, unicode.ToLower(r)) {
			return true
		}
	}
	return false
}

func styleOf(normalized string) domain.CommunicationStyle {
	formal := len(matchAny(normalized, formalTerms))
	casual := len(matchAny(normalized, casualTerms))
	switch {
	case formal > casual:
		return domain.StyleFormal
	case casual > formal:
		return domain.StyleCasual
	default:
		return domain.StyleUnknown
	}
}
