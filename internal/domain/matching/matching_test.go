package matching

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func keys(names ...string) []Key {
	out := make([]Key, len(names))
	for i, n := range names {
		out[i] = identity.Normalize(n)
	}
	return out
}

func TestTokenSortRatio(t *testing.T) {
	Convey("Given pairs of keys", t, func() {
		So(TokenSortRatio("john smith", "smith john"), ShouldEqual, 100)
		So(TokenSortRatio("jon smith", "john smith"), ShouldEqual, 90)
		So(TokenSortRatio("", ""), ShouldEqual, 100)
		So(TokenSortRatio("abc", ""), ShouldEqual, 0)
		So(TokenSortRatio("alice", "bob"), ShouldBeLessThan, 50)
	})

	Convey("Given multibyte names, lengths are counted in runes", t, func() {
		So(TokenSortRatio("zoë", "zoe"), ShouldAlmostEqual, 100*(1-1.0/3), 1e-9)
	})
}

func TestMatch(t *testing.T) {
	Convey("Given a near-miss spelling", t, func() {
		corr := New().Match(keys("Jon Smith", "Jane Doe"), keys("John Smith", "Jane Doe"))

		Convey("Then the exact name pairs first and the variant pairs fuzzily", func() {
			So(corr.Pairs, ShouldResemble, []Pair{
				{Predicted: "jane doe", Truth: "jane doe", Method: MethodExact, Score: 100},
				{Predicted: "jon smith", Truth: "john smith", Method: MethodFuzzy, Score: 90},
			})
			So(corr.Extra, ShouldBeEmpty)
			So(corr.Missing, ShouldBeEmpty)
			So(corr.Count(MethodFuzzy), ShouldEqual, 1)

			truth, ok := corr.Truth("jon smith")
			So(ok, ShouldBeTrue)
			So(truth, ShouldEqual, Key("john smith"))
			pred, ok := corr.Predicted("john smith")
			So(ok, ShouldBeTrue)
			So(pred, ShouldEqual, Key("jon smith"))
		})
	})

	Convey("Given names below the threshold", t, func() {
		corr := New().Match(keys("Alice Ng"), keys("Bob Stone"))

		Convey("Then nothing is matched", func() {
			So(corr.Len(), ShouldEqual, 0)
			So(corr.Extra, ShouldResemble, []Key{"alice ng"})
			So(corr.Missing, ShouldResemble, []Key{"bob stone"})
		})
	})

	Convey("Given a name whose best option is another name's only option", t, func() {
		// johnathan smyth scores 86.7 against jonathan smith and 83.3 against
		// johnathan smythers; jonathon smith only clears the bar with
		// jonathan smith (92.9).
		corr := New().Match(
			keys("Johnathan Smyth", "Jonathon Smith"),
			keys("Johnathan Smythers", "Jonathan Smith"),
		)

		Convey("Then the global best pair is taken first and both match", func() {
			So(corr.Len(), ShouldEqual, 2)
			So(corr.Pairs[0].Predicted, ShouldEqual, Key("jonathon smith"))
			So(corr.Pairs[0].Truth, ShouldEqual, Key("jonathan smith"))
			So(corr.Pairs[1].Predicted, ShouldEqual, Key("johnathan smyth"))
			So(corr.Pairs[1].Truth, ShouldEqual, Key("johnathan smythers"))
		})
	})

	Convey("Given a nickname that starts the full name", t, func() {
		Convey("When prefix matching is on", func() {
			corr := New().Match(keys("Vic"), keys("Victor Zhou"))
			So(corr.Len(), ShouldEqual, 1)
			So(corr.Pairs[0].Score, ShouldEqual, DefaultThreshold)
		})

		Convey("When prefix matching is off", func() {
			corr := New(WithPrefixMatch(false)).Match(keys("Vic"), keys("Victor Zhou"))
			So(corr.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given keys too short to stand for a name", t, func() {
		So(isPrefixRelated("a", "alice walker"), ShouldBeFalse)
		So(isPrefixRelated("al", "alice walker"), ShouldBeFalse)
		So(isPrefixRelated("ali", "alice walker"), ShouldBeTrue)
		So(isPrefixRelated("alice walker", "ali"), ShouldBeTrue)
		So(isPrefixRelated("", "alice walker"), ShouldBeFalse)

		Convey("Then a single initial does not match a full name", func() {
			corr := New().Match(keys("A"), keys("Alice Walker"))
			So(corr.Len(), ShouldEqual, 0)
			So(corr.Extra, ShouldResemble, []Key{"a"})
			So(corr.Missing, ShouldResemble, []Key{"alice walker"})
		})
	})

	Convey("Given a custom threshold", t, func() {
		m := New(WithThreshold(95), WithThreshold(150))
		So(m.Threshold(), ShouldEqual, 95)
		So(m.Match(keys("Jon Smith"), keys("John Smith")).Len(), ShouldEqual, 0)
	})

	Convey("Given repeated and empty keys", t, func() {
		corr := New().Match([]Key{"ann", "", "ann"}, []Key{"ann", "ann", ""})
		So(corr.Pairs, ShouldHaveLength, 1)
		So(corr.Extra, ShouldBeEmpty)
		So(corr.Missing, ShouldBeEmpty)
	})

	Convey("Given the comparison bound is exceeded", t, func() {
		pred, truth := keys("Xavier", "Jon Smith"), keys("Zavier", "John Smith")

		Convey("Then only pairs sharing a token initial are scored", func() {
			corr := New(WithMaxComparisons(1)).Match(pred, truth)
			So(corr.Len(), ShouldEqual, 1)
			So(corr.Extra, ShouldResemble, []Key{"xavier"})
		})

		Convey("And without the bound every pair is scored", func() {
			corr := New(WithMaxComparisons(0)).Match(pred, truth)
			So(corr.Len(), ShouldEqual, 2)
		})
	})

	Convey("Given a nil correspondence", t, func() {
		var corr *Correspondence
		So(corr.Len(), ShouldEqual, 0)
		So(corr.Count(MethodExact), ShouldEqual, 0)
		_, ok := corr.Truth("x")
		So(ok, ShouldBeFalse)
	})
}

func TestMatchBijection(t *testing.T) {
	Convey("Given random overlapping name sets", t, func() {
		rng := rand.New(rand.NewPCG(1, 2))
		first := []string{"ann", "anne", "bob", "rob", "jon", "john", "kim", "kym", "lee", "li"}
		last := []string{"smith", "smyth", "lee", "leigh", "park", "parks", "ng", "wong"}
		name := func() Key {
			return Key(fmt.Sprintf("%s %s", first[rng.IntN(len(first))], last[rng.IntN(len(last))]))
		}

		for round := 0; round < 30; round++ {
			var pred, truth []Key
			for i := 0; i < 5+rng.IntN(30); i++ {
				pred = append(pred, name())
				truth = append(truth, name())
			}
			m := New(WithMaxComparisons(rng.IntN(200)))
			corr := m.Match(pred, truth)

			seenPred := map[Key]bool{}
			seenTruth := map[Key]bool{}
			for _, p := range corr.Pairs {
				So(seenPred[p.Predicted], ShouldBeFalse)
				So(seenTruth[p.Truth], ShouldBeFalse)
				seenPred[p.Predicted], seenTruth[p.Truth] = true, true
				So(p.Score, ShouldBeGreaterThanOrEqualTo, m.Threshold())
			}
			for _, k := range corr.Extra {
				So(seenPred[k], ShouldBeFalse)
			}
			for _, k := range corr.Missing {
				So(seenTruth[k], ShouldBeFalse)
			}
			So(corr.Len()+len(corr.Extra), ShouldEqual, len(distinct(pred)))
			So(corr.Len()+len(corr.Missing), ShouldEqual, len(distinct(truth)))
		}
	})
}

func TestMatchCharts(t *testing.T) {
	Convey("Given two charts", t, func() {
		pred := model.NewOrgChart([]model.Employee{{Key: "jon smith", DisplayName: "Jon Smith"}})
		truth := model.NewOrgChart([]model.Employee{{Key: "john smith", DisplayName: "John Smith"}})

		corr := New().MatchCharts(pred, truth)
		So(corr.Len(), ShouldEqual, 1)
	})
}
