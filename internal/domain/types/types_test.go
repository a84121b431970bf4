package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/orgchart/internal/domain/matching"
	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/resolve"
	"github.com/okian/orgchart/internal/domain/scoring"
	"github.com/okian/orgchart/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAssertion(t *testing.T) {
	Convey("Given wire assertions with and without a manager", t, func() {
		var in []types.Assertion
		err := json.Unmarshal([]byte(`[
			{"subject": "Bob", "manager": "Alice", "confidence": 0.9},
			{"subject": "Alice", "manager": null, "confidence": 1},
			{"subject": "Carol"}
		]`), &in)
		So(err, ShouldBeNil)

		out := types.AssertionsToModel(in)

		Convey("Then null and missing managers both become roots", func() {
			So(out, ShouldResemble, []model.ManagerAssertion{
				{Subject: "Bob", Manager: "Alice", Confidence: 0.9},
				{Subject: "Alice", Confidence: 1},
				{Subject: "Carol"},
			})
			So(out[1].IsNull(), ShouldBeTrue)
		})
	})
}

func TestChartEntry(t *testing.T) {
	Convey("Given a document entry", t, func() {
		entry := model.Entry{Name: "Bob", Manager: "Alice", Teammates: []string{"Carol"}, Annotation: "billing"}

		wire := types.EntryFromModel(entry)

		Convey("Then empty lists and managers are null on the wire", func() {
			raw, err := json.Marshal(types.EntryFromModel(model.Entry{Name: "Alice"}))
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"name":"Alice","manager":null,"direct_reports":null,"teammates":null,"working_on":""}`)
		})

		Convey("And converting back restores the entry", func() {
			So(wire.ToModel(), ShouldResemble, entry)
		})
	})
}

func TestReportFromScoring(t *testing.T) {
	Convey("Given a scored evaluation with one wrong manager", t, func() {
		pred := model.NewOrgChart([]model.Employee{
			{Key: "boss", DisplayName: "Boss"},
			{Key: "dev", DisplayName: "Dev", Manager: "lead"},
			{Key: "lead", DisplayName: "Lead", Manager: "boss"},
		})
		truth := model.NewOrgChart([]model.Employee{
			{Key: "boss", DisplayName: "Boss"},
			{Key: "dev", DisplayName: "Dev", Manager: "boss"},
			{Key: "lead", DisplayName: "Lead", Manager: "boss"},
			{Key: "ops", DisplayName: "Ops", Manager: "boss"},
		})
		r := scoring.Score(matching.New().MatchCharts(pred, truth), pred, truth)

		wire := types.ReportFromScoring(r)

		Convey("Then the payload carries percentages and named errors", func() {
			So(wire.Coverage.CoveragePct, ShouldEqual, 75)
			So(wire.Coverage.Missing, ShouldResemble, []string{"Ops"})
			So(wire.Coverage.Extra, ShouldResemble, []string{})
			So(wire.Managers.Accuracy, ShouldEqual, 66.67)
			So(wire.Managers.Categories["wrong_manager"], ShouldEqual, 1)
			So(wire.Managers.Errors, ShouldHaveLength, 1)
			So(*wire.Managers.Errors[0].Expected, ShouldEqual, "Boss")
			So(*wire.Managers.Errors[0].Got, ShouldEqual, "Lead")
			So(wire.Matches, ShouldHaveLength, 3)
		})
	})
}

func TestDiagnosticsFromResolution(t *testing.T) {
	Convey("Given a resolution with a broken cycle", t, func() {
		res := resolve.New().Resolve([]string{"Ann", "Ben"}, []model.ManagerAssertion{
			{Subject: "Ann", Manager: "Ben", Confidence: 1},
			{Subject: "Ben", Manager: "Ann", Confidence: 1},
		})

		diags := types.DiagnosticsFromResolution(res)

		So(diags, ShouldHaveLength, 1)
		So(diags[0].Kind, ShouldEqual, "cycle_broken")
		So(diags[0].Subject, ShouldEqual, "Ben")
		So(diags[0].Cycle, ShouldResemble, []string{"Ann", "Ben"})
	})
}

func TestDecodeAssertionSet(t *testing.T) {
	Convey("Given a bare list of assertions", t, func() {
		set, err := types.DecodeAssertionSet([]byte(`
			[{"subject": "Bob", "manager": "Alice", "confidence": 0.5}]`))

		Convey("Then it becomes the assertions of a set", func() {
			So(err, ShouldBeNil)
			So(set.Roster, ShouldBeNil)
			So(set.Assertions, ShouldHaveLength, 1)
			So(*set.Assertions[0].Manager, ShouldEqual, "Alice")
		})
	})

	Convey("Given a full object", t, func() {
		set, err := types.DecodeAssertionSet([]byte(`{
			"roster": ["Alice", "Bob"],
			"assertions": [{"subject": "Bob", "manager": null, "confidence": 1}],
			"annotations": {"Bob": "payments"}
		}`))

		Convey("Then every part is kept", func() {
			So(err, ShouldBeNil)
			So(set.Roster, ShouldResemble, []string{"Alice", "Bob"})
			So(set.Assertions[0].Manager, ShouldBeNil)
			So(set.Annotations["Bob"], ShouldEqual, "payments")
		})
	})

	Convey("Given broken JSON", t, func() {
		_, err := types.DecodeAssertionSet([]byte(`[{"subject":`))
		So(err, ShouldNotBeNil)
		_, err = types.DecodeAssertionSet([]byte(`{"assertions": 3}`))
		So(err, ShouldNotBeNil)
	})
}
