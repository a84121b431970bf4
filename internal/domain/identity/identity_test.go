package identity_test

import (
	"testing"

	"github.com/okian/orgchart/internal/domain/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given free-text person names", t, func() {
		cases := []struct {
			in   string
			want identity.Key
		}{
			{"John Smith", "john smith"},
			{"  john   SMITH ", "john smith"},
			{"José Núñez", "jose nunez"},
			{"Zoë Ångström", "zoe angstrom"},
			{"Dr. Jane Doe", "jane doe"},
			{"Mr. & Mrs. Smith", "smith"},
			{"Prof Ada Lovelace, PhD.", "ada lovelace phd"},
			{"Martin Luther King Jr.", "martin luther king"},
			{"Victor Zhou (contractor)", "victor zhou"},
			{"Mary-Jane O'Brien", "mary-jane o'brien"},
			{"\"Alice\" Smith!", "alice smith"},
			{"Dr.", "dr"},
		}
		for _, c := range cases {
			So(identity.Normalize(c.in), ShouldEqual, c.want)
		}
	})

	Convey("Given input with nothing name-like", t, func() {
		for _, in := range []string{"", "   ", "???", "(unknown)", "—"} {
			k := identity.Normalize(in)

			So(k, ShouldEqual, identity.EmptyKey)
			So(k.IsEmpty(), ShouldBeTrue)
		}
	})

	Convey("Given the same input twice", t, func() {
		So(identity.Normalize("Renée Müller"), ShouldEqual, identity.Normalize("Renée Müller"))
	})
}

func TestTokens(t *testing.T) {
	Convey("Tokens splits a key on spaces", t, func() {
		So(identity.Tokens("victor zhou"), ShouldResemble, []string{"victor", "zhou"})
		So(identity.Tokens(identity.EmptyKey), ShouldBeEmpty)
	})
}

func TestNormalizer(t *testing.T) {
	Convey("Given a normalizer with aliases", t, func() {
		n := identity.NewNormalizer(identity.WithAliases(map[string]string{
			"Bob Jones": "Robert Jones",
			"Bobby":     "Robert Jones",
			"???":       "Robert Jones",
			"Robert J.": "",
			"Same Name": "same name",
		}))

		Convey("Then aliases resolve to the canonical key", func() {
			So(n.Key("bob jones"), ShouldEqual, identity.Key("robert jones"))
			So(n.Key("BOBBY"), ShouldEqual, identity.Key("robert jones"))
			So(n.Key("Robert Jones"), ShouldEqual, identity.Key("robert jones"))
		})

		Convey("And unusable or identity entries are ignored", func() {
			So(n.Aliases(), ShouldEqual, 2)
			So(n.Key("Robert J."), ShouldEqual, identity.Key("robert j"))
		})
	})

	Convey("Given a nil normalizer", t, func() {
		var n *identity.Normalizer

		So(n.Key("Ann Lee"), ShouldEqual, identity.Key("ann lee"))
		So(n.Aliases(), ShouldEqual, 0)
	})
}
