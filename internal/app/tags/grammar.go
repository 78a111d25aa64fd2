package tags

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ─── Tag Grammar ────────────────────────────────────────────────────────────
// A tag is a bracketed span whose first segment is "Keyword: value".
// Further segments, separated by "," or "，", are "Field: value" pairs.
// Keys are matched case-insensitively. A head that only starts with a
// keyword ("Spend 5", "花费5元") still counts when the keyword ends on a
// word boundary; longer keywords are tried first, so "UseGift" can never
// be read as "Use".

// Kind identifies a tag grammar.
type Kind string

const (
	KindSpend         Kind = "spend"
	KindStore         Kind = "store"
	KindUseGift       Kind = "use-gift"
	KindUse           Kind = "use"
	KindGift          Kind = "gift"
	KindRefund        Kind = "refund"
	KindNote          Kind = "note"
	KindApplyWithdraw Kind = "apply-withdraw"
)

// Field names a keyed value inside a tag.
type Field string

const (
	FieldReason Field = "reason"
	FieldDesc   Field = "desc"
	FieldFrom   Field = "from"
)

// Grammar describes one tag kind.
type Grammar struct {
	Kind     Kind
	Keywords []string // head keywords, English first then localized synonyms
	Fields   []Field  // keyed fields this kind accepts
	// Positional is the field an unkeyed second segment fills, as in
	// "[Spend: 3, a snack]". Empty means unkeyed text extends the
	// previous value instead.
	Positional Field
	// Multiple kinds apply every span in a response; singular kinds apply
	// only the last one.
	Multiple bool
}

// Precedence is the order in which kinds are applied within a response.
var Precedence = []Kind{
	KindSpend,
	KindStore,
	KindUseGift,
	KindUse,
	KindGift,
	KindRefund,
	KindNote,
	KindApplyWithdraw,
}

var grammars = map[Kind]Grammar{
	KindSpend: {
		Kind:       KindSpend,
		Keywords:   []string{"Spend", "花费", "支出"},
		Fields:     []Field{FieldReason},
		Positional: FieldReason,
	},
	KindStore: {
		Kind:       KindStore,
		Keywords:   []string{"Store", "入库", "收纳"},
		Fields:     []Field{FieldDesc},
		Positional: FieldDesc,
	},
	KindUseGift: {
		Kind:     KindUseGift,
		Keywords: []string{"UseGift", "使用礼物", "用礼物"},
		Multiple: true,
	},
	KindUse: {
		Kind:     KindUse,
		Keywords: []string{"Use", "使用", "用掉"},
	},
	KindGift: {
		Kind:     KindGift,
		Keywords: []string{"Gift", "礼物", "收礼"},
		Fields:   []Field{FieldFrom, FieldDesc},
		Multiple: true,
	},
	KindRefund: {
		Kind:       KindRefund,
		Keywords:   []string{"Refund", "退款", "退钱"},
		Fields:     []Field{FieldReason},
		Positional: FieldReason,
	},
	KindNote: {
		Kind:     KindNote,
		Keywords: []string{"Note", "笔记", "备忘"},
		Multiple: true,
	},
	KindApplyWithdraw: {
		Kind:       KindApplyWithdraw,
		Keywords:   []string{"ApplyWithdraw", "申请取款", "取款申请"},
		Fields:     []Field{FieldReason},
		Positional: FieldReason,
	},
}

var fieldAliases = map[Field][]string{
	FieldReason: {"Reason", "原因", "用途", "理由"},
	FieldDesc:   {"Desc", "描述", "说明"},
	FieldFrom:   {"From", "来自", "送礼人"},
}

type keyword struct {
	text string
	kind Kind
}

var (
	kindByKeyword  = make(map[string]Kind)
	fieldByKeyword = make(map[string]Field)

	// keywordsLongestFirst drives prefix and in-body matching.
	keywordsLongestFirst []keyword
)

func init() {
	for kind, g := range grammars {
		for _, kw := range g.Keywords {
			kindByKeyword[foldKey(kw)] = kind
			keywordsLongestFirst = append(keywordsLongestFirst, keyword{text: kw, kind: kind})
		}
	}
	slices.SortFunc(keywordsLongestFirst, func(a, b keyword) int {
		if c := cmp.Compare(len(b.text), len(a.text)); c != 0 {
			return c
		}
		return strings.Compare(a.text, b.text)
	})
	for field, aliases := range fieldAliases {
		for _, a := range aliases {
			fieldByKeyword[foldKey(a)] = field
		}
	}
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KindForKeyword maps a head keyword to its kind.
func KindForKeyword(keyword string) (Kind, bool) {
	k, ok := kindByKeyword[foldKey(keyword)]
	return k, ok
}

// KindForPrefix matches a keyword at the start of s. It returns the kind
// and the rest of s after the keyword. A keyword made of letters must not
// run into another letter, so "Spender" is not "Spend".
func KindForPrefix(s string) (Kind, string, bool) {
	for _, kw := range keywordsLongestFirst {
		if len(s) < len(kw.text) || !strings.EqualFold(s[:len(kw.text)], kw.text) {
			continue
		}
		if !endsWord(kw.text, s[len(kw.text):]) {
			continue
		}
		return kw.kind, s[len(kw.text):], true
	}
	return "", "", false
}

// mentionsKeyword reports the first kind whose keyword appears anywhere in
// s as a whole word.
func mentionsKeyword(s string) (Kind, bool) {
	for _, kw := range keywordsLongestFirst {
		for i := 0; i+len(kw.text) <= len(s); {
			j := indexFold(s[i:], kw.text)
			if j < 0 {
				break
			}
			at := i + j
			if startsWord(kw.text, s[:at]) && endsWord(kw.text, s[at+len(kw.text):]) {
				return kw.kind, true
			}
			_, size := utf8.DecodeRuneInString(s[at:])
			i = at + size
		}
	}
	return "", false
}

// indexFold is a case-insensitive strings.Index for keywords, which fold
// without changing their byte length.
func indexFold(s, kw string) int {
	for i := 0; i+len(kw) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(kw)], kw) {
			return i
		}
	}
	return -1
}

// endsWord reports whether a keyword followed by rest ends on a word
// boundary. Keywords in scripts written without spaces always do.
func endsWord(kw, rest string) bool {
	last, _ := utf8.DecodeLastRuneInString(kw)
	next, _ := utf8.DecodeRuneInString(rest)
	return !isWordRune(last) || rest == "" || !isWordRune(next)
}

func startsWord(kw, before string) bool {
	first, _ := utf8.DecodeRuneInString(kw)
	prev, _ := utf8.DecodeLastRuneInString(before)
	return !isWordRune(first) || before == "" || !isWordRune(prev)
}

// isWordRune is true for letters of alphabetic scripts and '_'. Han and
// other scripts without word spacing are never word runes here.
func isWordRune(r rune) bool {
	if r == '_' {
		return true
	}
	return unicode.IsLetter(r) && !unicode.Is(unicode.Han, r)
}

func (g Grammar) accepts(f Field) bool { return slices.Contains(g.Fields, f) }
