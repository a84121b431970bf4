package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/orgchart/internal/adapters/repository"
	service "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/config"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/resolve"
	"github.com/okian/orgchart/internal/domain/scoring"
	"github.com/okian/orgchart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const truthDoc = `# Org Structure

## Jane Doe
- **Manager:** null

---

## John Smith
- **Manager:** Jane Doe

---

## Kim Lee
- **Manager:** Jane Doe

---

## Omar Farouk
- **Manager:** John Smith
`

const predictedDoc = `# Org Structure

## Jane Doe
- **Manager:** null

---

## Jon Smith
- **Manager:** Jane Doe

---

## Kim Lee
- **Manager:** Jon Smith

---

## Pat Extra
- **Manager:** Jane Doe
`

func md(body string) service.Document {
	return service.Document{Body: []byte(body), Format: document.FormatMarkdown}
}

func pair(pred, truth string) service.EvaluateInput {
	return service.EvaluateInput{Predicted: md(pred), Truth: md(truth)}
}

func newService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithLogger(logger.Nop())}, opts...)
	return service.New(opts...)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(service.WithWorkerCount(3))
		ctx := context.Background()

		Convey("When it has not been started", func() {
			stats := svc.GetStats()

			Convey("Then stats report the configuration", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["workerCount"], ShouldEqual, 3)
				So(stats["matchThreshold"], ShouldEqual, 80.0)
				So(stats, ShouldNotContainKey, "storeEntries")
			})
		})

		Convey("When starting and stopping", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["storeEntries"], ShouldEqual, 0)

			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When the store driver is unknown", func() {
			bad := newService(service.WithStoreDriver("redis", "", 0))

			Convey("Then Start fails", func() {
				err := bad.Start(ctx)
				So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
			})
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When evaluating a prediction with a misspelled name", func() {
			ev, err := svc.Evaluate(ctx, pair(predictedDoc, truthDoc))

			Convey("Then names match fuzzily and relationships are scored", func() {
				So(err, ShouldBeNil)
				So(ev.RunID, ShouldNotBeEmpty)
				So(ev.Cached, ShouldBeFalse)
				r := ev.Report
				So(r.Coverage.Matched, ShouldEqual, 3)
				So(r.Coverage.Missing, ShouldResemble, []string{"Omar Farouk"})
				So(r.Coverage.Extra, ShouldResemble, []string{"Pat Extra"})
				So(r.Correct, ShouldEqual, 2)
				So(r.Categories[scoring.CategoryWrongManager], ShouldEqual, 1)
				So(r.ErrorsOf(scoring.CategoryWrongManager)[0].Employee, ShouldEqual, "Kim Lee")
			})

			Convey("And the same inputs are served from the store", func() {
				again, err := svc.Evaluate(ctx, pair(predictedDoc, truthDoc))
				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeTrue)
				So(again.RunID, ShouldNotEqual, ev.RunID)
				So(again.Report, ShouldResemble, ev.Report)
				So(svc.GetStats()["cacheHits"], ShouldEqual, int64(1))
			})

			Convey("And the text report can be rendered", func() {
				var buf bytes.Buffer
				So(svc.RenderText(&buf, ev), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, ev.RunID)
				So(buf.String(), ShouldContainSubstring, "Kim Lee")
			})
		})

		Convey("When a document does not parse", func() {
			_, err := svc.Evaluate(ctx, pair("## A\n- **Manager** B\n", truthDoc))

			Convey("Then the run aborts with an input error", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, document.ErrMalformedField), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "predicted document")
			})
		})

		Convey("When the ground truth has a cycle", func() {
			cyclic := "## A\n- **Manager:** B\n\n---\n\n## B\n- **Manager:** A\n"
			_, err := svc.Evaluate(ctx, pair(predictedDoc, cyclic))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "ground truth document")
			})
		})

		Convey("When the context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Evaluate(cctx, pair(predictedDoc, truthDoc))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := newService()

		Convey("Then evaluations still run without caching", func() {
			ev, err := svc.Evaluate(context.Background(), pair(truthDoc, truthDoc))
			So(err, ShouldBeNil)
			So(ev.Report.Accuracy, ShouldEqual, 1.0)

			again, err := svc.Evaluate(context.Background(), pair(truthDoc, truthDoc))
			So(err, ShouldBeNil)
			So(again.Cached, ShouldBeFalse)
		})
	})

	Convey("Given a strict matching threshold", t, func() {
		svc := newService(service.WithMatchThreshold(95), service.WithPrefixMatch(false))
		ev, err := svc.Evaluate(context.Background(), pair(predictedDoc, truthDoc))

		Convey("Then the misspelled name stays unmatched", func() {
			So(err, ShouldBeNil)
			So(ev.Report.Coverage.Missing, ShouldContain, "John Smith")
			So(ev.Report.Coverage.Extra, ShouldContain, "Jon Smith")
		})
	})
}

func TestService_EvaluateBatch(t *testing.T) {
	Convey("Given a batch with one broken pair", t, func() {
		svc := newService(service.WithWorkerCount(2))
		batch := []service.EvaluateInput{
			pair(predictedDoc, truthDoc),
			pair("not a chart", truthDoc),
			pair(truthDoc, truthDoc),
		}
		results := svc.EvaluateBatch(context.Background(), batch)

		Convey("Then results keep input order and failures stay local", func() {
			So(results, ShouldHaveLength, 3)
			So(results[0].Err, ShouldBeNil)
			So(results[0].Evaluation.Report.Coverage.Matched, ShouldEqual, 3)
			So(errors.Is(results[1].Err, service.ErrInvalidInput), ShouldBeTrue)
			So(results[1].Evaluation, ShouldBeNil)
			So(results[2].Err, ShouldBeNil)
			So(results[2].Evaluation.Report.Accuracy, ShouldEqual, 1.0)
		})
	})

	Convey("Given many pairs", t, func() {
		svc := newService(service.WithWorkerCount(4))
		batch := make([]service.EvaluateInput, 16)
		for i := range batch {
			batch[i] = pair(truthDoc, truthDoc)
		}
		results := svc.EvaluateBatch(context.Background(), batch)

		Convey("Then every pair is evaluated", func() {
			for _, r := range results {
				So(r.Err, ShouldBeNil)
				So(r.Evaluation.Report.Coverage.Matched, ShouldEqual, 4)
			}
		})
	})
}

func TestService_Resolve(t *testing.T) {
	Convey("Given conflicting assertions with a cycle", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		in := service.ResolveInput{
			Assertions: []model.ManagerAssertion{
				{Subject: "Alice", Manager: "", Confidence: 0.9},
				{Subject: "Bob", Manager: "Carol", Confidence: 0.8},
				{Subject: "Carol", Manager: "Dave", Confidence: 0.7},
				{Subject: "Dave", Manager: "Bob", Confidence: 0.4},
				{Subject: "Erin", Manager: "Alice", Confidence: 0.9},
				{Subject: "Erin", Manager: "Bob", Confidence: 0.5},
			},
			Annotations: map[string]string{"Erin": "hiring plan"},
		}

		Convey("When resolving", func() {
			res, err := svc.Resolve(ctx, in)

			Convey("Then the weakest cycle edge is removed", func() {
				So(err, ShouldBeNil)
				So(res.Cached, ShouldBeFalse)
				So(res.Chart.Len(), ShouldEqual, 5)
				So(res.Chart.Manager(identity.Normalize("Dave")), ShouldEqual, identity.EmptyKey)
				So(res.Chart.Manager(identity.Normalize("Erin")), ShouldEqual, identity.Normalize("Alice"))
				e, _ := res.Chart.Get(identity.Normalize("Erin"))
				So(e.Annotation, ShouldEqual, "hiring plan")

				kinds := make([]string, 0, len(res.Diagnostics))
				for _, d := range res.Diagnostics {
					kinds = append(kinds, d.Kind)
				}
				So(kinds, ShouldContain, string(resolve.KindCycleBroken))
			})

			Convey("And resolving again is served from the store", func() {
				again, err := svc.Resolve(ctx, in)
				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeTrue)
				So(again.Diagnostics, ShouldResemble, res.Diagnostics)
				So(again.Chart.Employees(), ShouldResemble, res.Chart.Employees())
			})
		})
	})

	Convey("Given display names the markdown form cannot carry", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		in := service.ResolveInput{
			Roster: []string{"Boss", "Smith, John", "Kim Lee", "null", "Pat"},
			Assertions: []model.ManagerAssertion{
				{Subject: "Smith, John", Manager: "Boss", Confidence: 0.9},
				{Subject: "Kim Lee", Manager: "Boss", Confidence: 0.9},
				{Subject: "null", Manager: "Boss", Confidence: 0.9},
				{Subject: "Pat", Manager: "null", Confidence: 0.9},
			},
			Annotations: map[string]string{"Kim Lee": "line one\n## Injected"},
		}

		fresh, err := svc.Resolve(ctx, in)
		So(err, ShouldBeNil)
		So(fresh.Cached, ShouldBeFalse)

		Convey("Then a cached resolution returns the identical chart", func() {
			cached, err := svc.Resolve(ctx, in)
			So(err, ShouldBeNil)
			So(cached.Cached, ShouldBeTrue)
			So(cmp.Diff(fresh.Chart.Employees(), cached.Chart.Employees()), ShouldBeEmpty)
			So(cmp.Diff(fresh.Diagnostics, cached.Diagnostics), ShouldBeEmpty)

			kim, _ := cached.Chart.Get(identity.Normalize("Kim Lee"))
			So(kim.Teammates, ShouldContain, identity.Normalize("Smith, John"))
			So(cached.Chart.Manager(identity.Normalize("Pat")), ShouldEqual, identity.Normalize("null"))
		})

		Convey("And the rendered markdown loads back as a valid chart", func() {
			var buf bytes.Buffer
			So(document.Render(&buf, fresh.Chart), ShouldBeNil)
			again, err := document.LoadString(buf.String(), document.FormatMarkdown)
			So(err, ShouldBeNil)
			So(again.Len(), ShouldEqual, fresh.Chart.Len())
			kim, _ := again.Get(identity.Normalize("Kim Lee"))
			So(kim.Annotation, ShouldEqual, "line one ## Injected")
		})
	})

	Convey("Given aliases and a first-seen policy", t, func() {
		svc := newService(
			service.WithAliases(map[string]string{"Bobby": "Bob"}),
			service.WithTieBreak(config.TieBreakFirstSeen),
		)
		res, err := svc.Resolve(context.Background(), service.ResolveInput{
			Roster: []string{"Bob", "Ann", "Cid"},
			Assertions: []model.ManagerAssertion{
				{Subject: "Bobby", Manager: "Ann", Confidence: 0.5},
				{Subject: "Bob", Manager: "Cid", Confidence: 0.5},
				{Subject: "Bob", Manager: "Cid", Confidence: 0.5},
			},
		})

		Convey("Then the earliest claim wins despite frequency", func() {
			So(err, ShouldBeNil)
			So(res.Chart.Manager(identity.Normalize("Bob")), ShouldEqual, identity.Normalize("Ann"))
		})
	})
}

func TestService_SQLiteStore(t *testing.T) {
	Convey("Given a service backed by SQLite", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "artifacts.db")

		first := newService(service.WithStoreDriver(repository.DriverSQLite, path, 16))
		So(first.Start(ctx), ShouldBeNil)
		ev, err := first.Evaluate(ctx, pair(predictedDoc, truthDoc))
		So(err, ShouldBeNil)
		first.Stop()

		Convey("When a new process evaluates the same pair", func() {
			second := newService(service.WithStoreDriver(repository.DriverSQLite, path, 16))
			So(second.Start(ctx), ShouldBeNil)
			defer second.Stop()
			again, err := second.Evaluate(ctx, pair(predictedDoc, truthDoc))

			Convey("Then the persisted report is reused", func() {
				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeTrue)
				So(again.Report, ShouldResemble, ev.Report)
			})
		})

		Convey("When the pipeline version changes", func() {
			bumped := newService(
				service.WithStoreDriver(repository.DriverSQLite, path, 16),
				service.WithPipelineVersion(2),
			)
			So(bumped.Start(ctx), ShouldBeNil)
			defer bumped.Stop()
			again, err := bumped.Evaluate(ctx, pair(predictedDoc, truthDoc))

			Convey("Then nothing stale is read", func() {
				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeFalse)
			})
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given a loaded configuration", t, func() {
		cfg := config.New()
		cfg.WorkerCount = 5
		cfg.MatchThreshold = 90
		svc := newService(service.Options(cfg)...)

		Convey("Then the service reflects it", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 5)
			So(stats["matchThreshold"], ShouldEqual, 90.0)
			So(stats["tieBreak"], ShouldEqual, config.TieBreakFrequency)
			So(fmt.Sprint(stats["pipelineVersion"]), ShouldEqual, "1")
		})
	})

	Convey("Given a roster-only resolve", t, func() {
		res, err := newService().Resolve(context.Background(), service.ResolveInput{Roster: []string{"Solo"}})
		So(err, ShouldBeNil)
		So(res.Chart.Len(), ShouldEqual, 1)
		So(res.Diagnostics, ShouldHaveLength, 1)
		So(res.Diagnostics[0].Kind, ShouldEqual, string(resolve.KindNoAssertion))
	})
}
