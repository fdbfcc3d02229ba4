package aggregate

import "testing"

func TestFormatPersonsCSV_SingleAbsence(t *testing.T) {
	got := FormatPersonsCSV(
		[]PersonDetail{{Name: "Ana", Posto: "Cap", Org: "OM1", Email: "a@x.com"}},
		nil, nil,
	)
	want := "Nome,Posto,Organizacao,Status,Email\n\"Ana\",Cap,OM1,Faltou,a@x.com"
	if got != want {
		t.Fatalf("csv mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatPersonsCSV_OrderAndQuoting(t *testing.T) {
	got := PresenceCSV(AggregatedPresenceRecord{
		Absences: []PersonDetail{{Name: "A", Email: "a@x"}},
		Attended: []PersonDetail{{Name: `Jo "Zé"`, Org: "OM, Sul", Email: "j@x"}},
		Extras:   []PersonDetail{{Name: "", Posto: "Sd", Email: UnknownEmail}},
	})
	want := "Nome,Posto,Organizacao,Status,Email\n" +
		"\"A\",,,Faltou,a@x\n" +
		"\"Jo \"\"Zé\"\"\",,\"OM, Sul\",Compareceu,j@x\n" +
		"\"\",Sd,,Extra,Desconhecido"
	if got != want {
		t.Fatalf("csv mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatPersonsCSV_HeaderOnly(t *testing.T) {
	if got := FormatPersonsCSV(nil, nil, nil); got != CSVHeader {
		t.Fatalf("empty export = %q", got)
	}
}
