package langdetect

// profile holds the per-language reference data used by the client-side
// detectors: a small bag of very common words, the characteristic diacritics,
// and the expected spectral envelope of spoken audio.
type profile struct {
	// words are high-frequency function words, lowercase.
	words []string

	// diacritics are runes that strongly indicate the language in written
	// form.
	diacritics []rune

	// centroidLow/High bound the expected spectral centroid in Hz.
	centroidLow, centroidHigh float64

	// rolloffLow/High bound the expected 85% spectral rolloff in Hz.
	rolloffLow, rolloffHigh float64
}

// profiles covers the default candidate set. Spectral ranges are coarse
// envelopes for 16 kHz mono speech and only feed the low-weight phonetic
// heuristic.
var profiles = map[string]profile{
	"en": {
		words:       []string{"the", "and", "you", "that", "have", "for", "not", "with", "this", "what", "are", "was"},
		centroidLow: 1400, centroidHigh: 2800,
		rolloffLow: 3200, rolloffHigh: 5600,
	},
	"es": {
		words:      []string{"que", "de", "la", "el", "en", "los", "por", "con", "como", "para", "pero", "esta", "hola", "gracias"},
		diacritics: []rune{'ñ', 'á', 'é', 'í', 'ó', 'ú', '¿', '¡'},
		centroidLow: 1200, centroidHigh: 2400,
		rolloffLow: 2800, rolloffHigh: 5000,
	},
	"fr": {
		words:      []string{"le", "les", "des", "est", "que", "pas", "vous", "une", "pour", "dans", "avec", "bonjour"},
		diacritics: []rune{'é', 'è', 'ê', 'ë', 'à', 'â', 'ç', 'î', 'ï', 'ô', 'ù', 'û', 'œ'},
		centroidLow: 1300, centroidHigh: 2600,
		rolloffLow: 3000, rolloffHigh: 5200,
	},
	"de": {
		words:      []string{"der", "die", "das", "und", "ist", "nicht", "ich", "sie", "mit", "auf", "ein", "danke"},
		diacritics: []rune{'ä', 'ö', 'ü', 'ß'},
		centroidLow: 1500, centroidHigh: 2900,
		rolloffLow: 3400, rolloffHigh: 5800,
	},
	"it": {
		words:      []string{"che", "di", "la", "il", "non", "per", "una", "sono", "con", "come", "ciao", "grazie"},
		diacritics: []rune{'à', 'è', 'é', 'ì', 'ò', 'ù'},
		centroidLow: 1250, centroidHigh: 2500,
		rolloffLow: 2900, rolloffHigh: 5100,
	},
	"pt": {
		words:      []string{"que", "de", "não", "uma", "com", "para", "mais", "como", "isso", "você", "obrigado"},
		diacritics: []rune{'ã', 'õ', 'ç', 'á', 'é', 'í', 'ó', 'ú', 'â', 'ê', 'ô'},
		centroidLow: 1200, centroidHigh: 2450,
		rolloffLow: 2850, rolloffHigh: 5000,
	},
	"nl": {
		words:      []string{"de", "het", "een", "van", "dat", "niet", "met", "voor", "maar", "zijn"},
		centroidLow: 1450, centroidHigh: 2850,
		rolloffLow: 3300, rolloffHigh: 5700,
	},
	"pl": {
		words:      []string{"nie", "jest", "tak", "się", "ale", "jak", "czy", "tym", "dziękuję"},
		diacritics: []rune{'ą', 'ć', 'ę', 'ł', 'ń', 'ś', 'ź', 'ż'},
		centroidLow: 1350, centroidHigh: 2700,
		rolloffLow: 3100, rolloffHigh: 5400,
	},
}

// DefaultCandidates is the candidate set probed when none is configured,
// ordered by rough global prevalence.
var DefaultCandidates = []string{"en", "es", "fr", "de", "it", "pt", "nl", "pl"}

func profileFor(language string) (profile, bool) {
	p, ok := profiles[language]
	return p, ok
}
