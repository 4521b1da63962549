package bom

import (
	"regexp"
	"strings"

	"github.com/KiCad-RU/kicad-plugins/pkg/kicad/legacy/schematic"
)

// Stamp is the title block of a parts list. Schematics keep it in the
// $Descr block, with the comment lines used as stamp fields.
type Stamp struct {
	Title         string
	Company       string
	DecimalNumber string // Comment1
	Developer     string // Comment2
	Verifier      string // Comment3
	Approver      string // Comment4
}

// ListSuffix ends the title of a parts list.
const ListSuffix = "Перечень элементов"

var (
	decimalNumPattern = regexp.MustCompile(`([А-ЯA-Z0-9]+(?:[^А-ЯA-Z0-9][0-9.\-\s]+)?)(Э[1-7])?`)

	schematicKinds = []string{
		"структурная",
		"функциональная",
		"принципиальная",
		"соединений",
		"подключения",
		"общая",
		"расположения",
	}
)

// StampFrom builds the parts list stamp of a schematic title block. A nil
// block gives an empty stamp titled ListSuffix.
func StampFrom(d *schematic.TitleBlock) Stamp {
	if d == nil {
		return Stamp{Title: ListSuffix}
	}
	return Stamp{
		Title:         ListTitle(d.Title),
		Company:       d.Company,
		DecimalNumber: ListNumber(d.Comment1),
		Developer:     d.Comment2,
		Verifier:      d.Comment3,
		Approver:      d.Comment4,
	}
}

// ListNumber turns the decimal number of a schematic into the number of its
// parts list by putting "П" before the document code: "АБВГ.123456.001Э3"
// becomes "АБВГ.123456.001ПЭ3". Numbers without a code are returned as is.
func ListNumber(num string) string {
	m := decimalNumPattern.FindStringSubmatch(num)
	if m == nil || m[1] == "" || m[2] == "" {
		return num
	}
	return m[1] + "П" + m[2]
}

// ListTitle turns a schematic title into a parts list title. A trailing
// "Схема электрическая <kind>" is replaced by ListSuffix; any other title
// gets ListSuffix on a new line. Line breaks are the literal `\n` used in
// title blocks.
func ListTitle(title string) string {
	const kindPrefix = "Схема электрическая "
	if i := strings.LastIndex(title, kindPrefix); i >= 0 {
		head, kind := title[:i], title[i+len(kindPrefix):]
		for _, k := range schematicKinds {
			if kind != k {
				continue
			}
			if !strings.HasSuffix(head, `\n`) {
				head += `\n`
			}
			return head + ListSuffix
		}
	}
	if title == "" {
		return ListSuffix
	}
	return title + `\n` + ListSuffix
}

func (s *Stamp) rows() [][]string {
	return [][]string{
		{"Title", s.Title},
		{"Company", s.Company},
		{"Decimal number", s.DecimalNumber},
		{"Developer", s.Developer},
		{"Verifier", s.Verifier},
		{"Approver", s.Approver},
	}
}
