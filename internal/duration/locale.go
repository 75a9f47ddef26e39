// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duration

import "strings"

// DefaultLocale is used for unknown or empty locale tags.
const DefaultLocale = "en"

type localeTable struct {
	placeholder     string
	datePlaceholder string
	month           string
	months          string
	years           string
	monthNames      [12]string
}

var locales = map[string]localeTable{
	"en": {
		placeholder:     "N/A",
		datePlaceholder: "--/---/----",
		month:           "month",
		months:          "months",
		years:           "years",
		monthNames:      [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	},
	"es": {
		placeholder:     "N/D",
		datePlaceholder: "--/---/----",
		month:           "mes",
		months:          "meses",
		years:           "años",
		monthNames:      [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"},
	},
	"pt": {
		placeholder:     "N/D",
		datePlaceholder: "--/---/----",
		month:           "mês",
		months:          "meses",
		years:           "anos",
		monthNames:      [12]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
	},
}

// NormalizeLocale maps a locale tag such as "es-AR" to a supported base
// language, falling back to DefaultLocale.
func NormalizeLocale(locale string) string {
	base := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if _, ok := locales[base]; ok {
		return base
	}
	return DefaultLocale
}

func lookup(locale string) localeTable {
	return locales[NormalizeLocale(locale)]
}
