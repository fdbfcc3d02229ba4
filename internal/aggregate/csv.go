package aggregate

import "strings"

// CSV status labels.
const (
	StatusAbsent   = "Faltou"
	StatusAttended = "Compareceu"
	StatusExtra    = "Extra"
)

// CSVHeader is the first line of every export.
const CSVHeader = "Nome,Posto,Organizacao,Status,Email"

// PresenceCSV exports the drill-down lists of one record.
func PresenceCSV(rec AggregatedPresenceRecord) string {
	return FormatPersonsCSV(rec.Absences, rec.Attended, rec.Extras)
}

// FormatPersonsCSV writes the header then absences, attended and extras, one
// line each, joined by "\n" without a trailing newline. The name column is
// always quoted; other columns are quoted only when they need it.
func FormatPersonsCSV(absences, attended, extras []PersonDetail) string {
	lines := make([]string, 0, 1+len(absences)+len(attended)+len(extras))
	lines = append(lines, CSVHeader)
	add := func(ps []PersonDetail, status string) {
		for _, p := range ps {
			lines = append(lines, strings.Join([]string{
				quote(p.Name),
				field(p.Posto),
				field(p.Org),
				status,
				field(p.Email),
			}, ","))
		}
	}
	add(absences, StatusAbsent)
	add(attended, StatusAttended)
	add(extras, StatusExtra)
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func field(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return quote(s)
	}
	return s
}
