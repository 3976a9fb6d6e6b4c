// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package admission

import (
	"regexp"
	"strings"
)

// knownProviders lists consumer and business mail domains admitted as-is.
var knownProviders = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"live.com":       true,
	"msn.com":        true,
	"yahoo.com":      true,
	"yahoo.co.uk":    true,
	"yahoo.co.in":    true,
	"ymail.com":      true,
	"rocketmail.com": true,
	"aol.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"mac.com":        true,
	"protonmail.com": true,
	"proton.me":      true,
	"pm.me":          true,
	"zoho.com":       true,
	"zohomail.com":   true,
	"gmx.com":        true,
	"gmx.net":        true,
	"gmx.de":         true,
	"web.de":         true,
	"mail.com":       true,
	"yandex.com":     true,
	"yandex.ru":      true,
	"mail.ru":        true,
	"qq.com":         true,
	"163.com":        true,
	"126.com":        true,
	"sina.com":       true,
	"naver.com":      true,
	"daum.net":       true,
	"hanmail.net":    true,
	"fastmail.com":   true,
	"tutanota.com":   true,
	"tuta.io":        true,
	"hey.com":        true,
	"rediffmail.com": true,
	"comcast.net":    true,
	"verizon.net":    true,
	"att.net":        true,
	"btinternet.com": true,
	"orange.fr":      true,
	"free.fr":        true,
	"libero.it":      true,
	"t-online.de":    true,
}

// academicPatterns match educational suffixes: .edu, .ac.XX, .edu.XX.
var academicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.edu$`),
	regexp.MustCompile(`\.ac\.[a-z]{2}$`),
	regexp.MustCompile(`\.edu\.[a-z]{2}$`),
}

// businessTLDs are the generic top-level suffixes admitted for work domains.
var businessTLDs = map[string]bool{
	"com": true,
	"org": true,
	"net": true,
	"io":  true,
	"co":  true,
}

// minBusinessLabel is the shortest label accepted in front of a business TLD.
const minBusinessLabel = 3

// AdmitDomain reports whether mail for domain may be submitted. The domain
// is compared case-insensitively.
func AdmitDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	if knownProviders[domain] {
		return true
	}

	for _, re := range academicPatterns {
		if re.MatchString(domain) {
			return true
		}
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	tld := labels[len(labels)-1]
	if !businessTLDs[tld] {
		return false
	}
	label := labels[len(labels)-2]
	return len(label) >= minBusinessLabel && !isNumeric(label)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
