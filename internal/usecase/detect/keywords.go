// Package detect holds the data-driven vocabulary tables and pure detection
// functions used by the context manager and the routing engine. The tables
// are plain data so they can be unit-tested and localized independently of
// the routing logic.
package detect

// criticalTerms is the fixed keyword set that triggers the emergency
// override. Scanned unconditionally on every message, independent of
// agent scoring.
var criticalTerms = []string{
	// English
	"chest pain",
	"can't breathe",
	"cannot breathe",
	"can not breathe",
	"not breathing",
	"difficulty breathing",
	"unconscious",
	"passed out",
	"severe bleeding",
	"bleeding heavily",
	"heart attack",
	"stroke",
	"seizure",
	"choking",
	"overdose",
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"want to die",
	"hurt myself",
	// Vietnamese
	"đau ngực",
	"khó thở",
	"không thở được",
	"bất tỉnh",
	"ngất xỉu",
	"chảy máu nhiều",
	"đau tim",
	"đột quỵ",
	"co giật",
	"sặc",
	"tự tử",
	"muốn chết",
	"tự làm hại",
}

// ageCluster pairs an age group with the vocabulary cluster that
// suggests it.
type ageCluster struct {
	group string
	terms []string
}

// ageClusterTerms lists the clusters in detection priority order: the
// first matching cluster wins, so a message touching several clusters
// always resolves the same way. Caretaker-of-child language outranks the
// rest because the conversation subject is the child; teen vocabulary
// outranks elderly because school terms are the more specific signal.
var ageClusterTerms = []ageCluster{
	{group: "child", terms: []string{
		"my son", "my daughter", "my child", "my kid", "my toddler", "my baby",
		"con tôi", "con trai tôi", "con gái tôi", "bé nhà tôi",
	}},
	{group: "teen", terms: []string{
		"exam", "exams", "school", "homework", "my teacher", "my parents",
		"my mom won't", "my dad won't", "grade", "classmate",
		"thi cử", "bài kiểm tra", "bài tập về nhà", "trường học", "bố mẹ tôi",
	}},
	{group: "elderly", terms: []string{
		"retirement", "retired", "pension", "grandchildren", "my grandchild",
		"nursing home", "walker", "hearing aid",
		"về hưu", "nghỉ hưu", "lương hưu", "cháu tôi",
	}},
}

// conditionTerms maps a canonical health condition to its detection
// vocabulary. Detected conditions are added to the profile idempotently.
var conditionTerms = map[string][]string{
	"diabetes":      {"diabetes", "diabetic", "tiểu đường"},
	"hypertension":  {"hypertension", "high blood pressure", "huyết áp cao", "cao huyết áp"},
	"asthma":        {"asthma", "hen suyễn"},
	"arthritis":     {"arthritis", "viêm khớp"},
	"heart disease": {"heart disease", "heart condition", "bệnh tim"},
	"depression":    {"depression", "depressed", "trầm cảm"},
	"anxiety":       {"anxiety", "panic attacks", "lo âu", "rối loạn lo âu"},
	"insomnia":      {"insomnia", "mất ngủ"},
	"migraine":      {"migraine", "migraines", "đau nửa đầu"},
}

// topicTerms maps a health-pattern type to the terms that indicate it.
// Repeated hits across turns become HealthPatterns.
var topicTerms = map[string][]string{
	"sleep":    {"insomnia", "can't sleep", "cannot sleep", "sleepless", "mất ngủ", "khó ngủ"},
	"pain":     {"headache", "migraine", "back pain", "stomach ache", "chest pain", "pain", "đau"},
	"stress":   {"stressed", "stress", "overwhelmed", "under pressure", "burned out", "căng thẳng", "áp lực"},
	"mood":     {"sad", "depressed", "hopeless", "lonely", "crying", "buồn", "tuyệt vọng", "cô đơn"},
	"fatigue":  {"tired", "exhausted", "fatigue", "no energy", "mệt", "mệt mỏi", "kiệt sức"},
	"appetite": {"no appetite", "not eating", "skipping meals", "chán ăn", "bỏ bữa"},
}

// Trend vocabulary for pattern severity.
var (
	worseningTerms = []string{
		"worse", "getting worse", "worsening", "more often", "more frequent",
		"unbearable", "can't take it", "nặng hơn", "tệ hơn", "nhiều hơn",
	}
	improvingTerms = []string{
		"better", "getting better", "improving", "less often", "eased",
		"đỡ hơn", "tốt hơn", "giảm rồi",
	}
)

// Communication-style markers.
var (
	formalTerms = []string{
		"please", "could you", "would you", "thank you", "kindly", "doctor",
		"vui lòng", "xin chào", "cảm ơn", "ạ", "dạ", "thưa",
	}
	casualTerms = []string{
		"hey", "yo", "lol", "omg", "btw", "gonna", "wanna",
		"ơi", "nhé", "nha", "hihi",
	}
)

// Cultural markers derived per turn.
var (
	familyTerms = []string{
		"family", "my mother", "my father", "my wife", "my husband",
		"my parents", "my son", "my daughter",
		"gia đình", "mẹ tôi", "bố tôi", "vợ tôi", "chồng tôi",
	}
	workStressTerms = []string{
		"deadline", "my boss", "overtime", "workload", "laid off", "fired",
		"công việc", "sếp", "tăng ca", "mất việc",
	}
)
