package similarity

// Stop words for the content languages currently ingested (Korean + English).
var stopWords = map[string]struct{}{
	"의": {}, "가": {}, "이": {}, "은": {}, "는": {}, "을": {}, "를": {},
	"에": {}, "와": {}, "과": {}, "로": {}, "으로": {}, "에서": {}, "부터": {},
	"까지": {}, "한": {}, "그": {}, "저": {}, "이런": {}, "그런": {}, "저런": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {},
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
