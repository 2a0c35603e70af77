package format

import (
	"strings"

	"github.com/goodsign/monday"
)

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"de_at": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"ru":    monday.LocaleRuRU,
	"ru_ru": monday.LocaleRuRU,
	"sv":    monday.LocaleSvSE,
	"sv_se": monday.LocaleSvSE,
	"ja":    monday.LocaleJaJP,
	"ja_jp": monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_cn": monday.LocaleZhCN,
	"zh_tw": monday.LocaleZhTW,
	"ko":    monday.LocaleKoKR,
	"ko_kr": monday.LocaleKoKR,
}

// mondayLocale maps "ja-JP", "ja_jp" or "ja" to a monday locale, falling
// back to the language part and then to US English.
func mondayLocale(name string) monday.Locale {
	name = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	if loc, ok := mondayLocales[name]; ok {
		return loc
	}
	if lang, _, found := strings.Cut(name, "_"); found {
		if loc, ok := mondayLocales[lang]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

// longDateLayout returns the full-month-name layout for locale.
func longDateLayout(locale monday.Locale) string {
	switch locale {
	case monday.LocaleEnUS:
		return "January 2, 2006"
	case monday.LocaleDeDE:
		return "2. January 2006"
	case monday.LocaleEsES:
		return "2 de January de 2006"
	case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
		return "2006年1月2日"
	case monday.LocaleKoKR:
		return "2006년 1월 2일"
	default:
		return "2 January 2006"
	}
}
