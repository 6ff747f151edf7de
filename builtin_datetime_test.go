// builtin_datetime_test.go
package utlx

import (
	"testing"
	"time"
)

func evalAt(t *testing.T, src string, clock time.Time) Node {
	t.Helper()
	out, err := EvaluateExpr("test", src, NullNode, NewRegistry(),
		Options{Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("EvaluateExpr: %v\nsource:\n%s", err, src)
	}
	return out
}

func Test_Builtin_NowAndTodayReadTheClock(t *testing.T) {
	clock := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	wantNode(t, evalAt(t, `now()`, clock), StrNode("2025-03-14T09:26:53Z"))
	wantNode(t, evalAt(t, `today()`, clock), StrNode("2025-03-14"))
	// non-UTC clocks normalize to UTC
	cet := time.FixedZone("CET", 3600)
	wantNode(t, evalAt(t, `now()`, time.Date(2025, 1, 1, 0, 30, 0, 0, cet)),
		StrNode("2024-12-31T23:30:00Z"))
}

func Test_Builtin_ParseDate(t *testing.T) {
	wantStr(t, `parseDate("14/03/2025", "dd/MM/yyyy")`, "2025-03-14")
	wantStr(t, `parseDate("2025-03-14 09:26", "yyyy-MM-dd HH:mm")`, "2025-03-14")
	wantArgErr(t, `parseDate("14-03-2025", "dd/MM/yyyy")`, "does not match layout")
}

func Test_Builtin_FormatDate(t *testing.T) {
	wantStr(t, `formatDate("2025-03-14", "dd/MM/yyyy")`, "14/03/2025")
	wantStr(t, `formatDate("2025-03-14", "yy")`, "25")
	// timestamps format too, including time fields
	wantStr(t, `formatDate("2025-03-14T09:26:53Z", "yyyy-MM-dd HH:mm:ss")`,
		"2025-03-14 09:26:53")
	wantArgErr(t, `formatDate("last tuesday", "yyyy")`, "not an ISO date")
}

func Test_Builtin_DateArithmetic(t *testing.T) {
	wantStr(t, `addDays("2025-03-14", 20)`, "2025-04-03")
	wantStr(t, `addDays("2025-03-01", -1)`, "2025-02-28")
	// leap year
	wantStr(t, `addDays("2024-02-28", 1)`, "2024-02-29")

	wantNode(t, evalX(t, `daysBetween("2025-03-14", "2025-04-03")`, NullNode), IntNode(20))
	wantNode(t, evalX(t, `daysBetween("2025-04-03", "2025-03-14")`, NullNode), IntNode(-20))
	wantNode(t, evalX(t, `daysBetween("2025-03-14", "2025-03-14")`, NullNode), IntNode(0))
}

func Test_Builtin_PipelineWithDates(t *testing.T) {
	got := evalX(t, `["2025-01-03", "2025-01-01", "2025-01-02"] |> sort() |> first() |> formatDate("dd.MM.yyyy")`, NullNode)
	wantNode(t, got, StrNode("01.01.2025"))
}
