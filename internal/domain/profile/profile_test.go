package profile_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/scit/internal/domain/profile"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecode(t *testing.T) {
	Convey("Given scanned content", t, func() {
		Convey("When it is a flat JSON object", func() {
			p, err := profile.Decode(`{"name":"A","id":"1"}`)

			Convey("Then the payload equals the mapping", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, profile.Payload{"name": "A", "id": "1"})
			})
		})

		Convey("When it is a nested object", func() {
			p, err := profile.Decode(`{"manager":{"email":"m@x.io"},"skills":["hvac",2]}`)

			Convey("Then nested values are kept", func() {
				So(err, ShouldBeNil)
				So(p["manager"], ShouldResemble, map[string]any{"email": "m@x.io"})
				So(p["skills"], ShouldResemble, []any{"hvac", float64(2)})
			})
		})

		Convey("When it is an empty object", func() {
			p, err := profile.Decode(`{}`)
			So(err, ShouldBeNil)
			So(p, ShouldBeEmpty)
		})

		Convey("When it is not structured data", func() {
			for _, raw := range []string{"not-json", "", "null", `["a"]`, `"text"`, `42`, `{"a":1} {"b":2}`, `{"a":`, "\xff\xfe"} {
				_, err := profile.Decode(raw)
				So(errors.Is(err, profile.ErrMalformed), ShouldBeTrue)
			}
		})
	})
}

func TestPayloadClone(t *testing.T) {
	Convey("Given a payload with nested values", t, func() {
		p := profile.Payload{"a": map[string]any{"b": "c"}, "l": []any{"x"}}
		c := p.Clone()

		Convey("When the clone is mutated", func() {
			c["a"].(map[string]any)["b"] = "changed"
			c["l"].([]any)[0] = "y"
			c["new"] = true

			Convey("Then the original is untouched", func() {
				So(p["a"].(map[string]any)["b"], ShouldEqual, "c")
				So(p["l"].([]any)[0], ShouldEqual, "x")
				So(p, ShouldNotContainKey, "new")
			})
		})

		Convey("Then a nil payload clones to an empty one", func() {
			var n profile.Payload
			So(n.Clone(), ShouldNotBeNil)
			So(n.Clone(), ShouldBeEmpty)
		})
	})

	Convey("Given a payload with a string field", t, func() {
		p := profile.Payload{"name": "A", "age": 3.0}
		s, ok := p.String("name")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, "A")
		_, ok = p.String("age")
		So(ok, ShouldBeFalse)
	})
}

func TestInMemoryStore(t *testing.T) {
	Convey("Given a new store", t, func() {
		ctx := context.Background()
		s := profile.NewInMemoryStore()

		Convey("Then reading before any write returns an empty mapping", func() {
			p := s.Read(ctx)
			So(p, ShouldNotBeNil)
			So(p, ShouldBeEmpty)
			So(s.Writes(), ShouldEqual, 0)
		})

		Convey("When a payload is written", func() {
			in := profile.Payload{"name": "A", "id": "1"}
			s.Write(ctx, in)

			Convey("Then repeated reads return the same value", func() {
				first := s.Read(ctx)
				second := s.Read(ctx)
				So(first, ShouldResemble, in)
				So(second, ShouldResemble, first)
				So(s.Writes(), ShouldEqual, 1)
			})

			Convey("Then mutating the input or a read does not leak into the store", func() {
				in["name"] = "B"
				r := s.Read(ctx)
				r["id"] = "2"
				So(s.Read(ctx), ShouldResemble, profile.Payload{"name": "A", "id": "1"})
			})

			Convey("And a second payload is written", func() {
				s.Write(ctx, profile.Payload{"other": "x"})

				Convey("Then it replaces the first instead of merging", func() {
					So(s.Read(ctx), ShouldResemble, profile.Payload{"other": "x"})
				})
			})
		})

		Convey("When writers and readers race", func() {
			a := profile.Payload{"k1": "a", "k2": "a"}
			b := profile.Payload{"k1": "b", "k2": "b"}
			var wg sync.WaitGroup
			torn := make(chan profile.Payload, 100)
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					if i%2 == 0 {
						s.Write(ctx, a)
					} else {
						s.Write(ctx, b)
					}
				}(i)
				go func() {
					defer wg.Done()
					p := s.Read(ctx)
					if len(p) > 0 && p["k1"] != p["k2"] {
						torn <- p
					}
				}()
			}
			wg.Wait()
			close(torn)

			Convey("Then no reader observes a mixed payload", func() {
				So(len(torn), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store seeded with a payload", t, func() {
		s := profile.NewInMemoryStore(profile.WithInitial(profile.Payload{"seed": true}))
		So(s.Read(context.Background()), ShouldResemble, profile.Payload{"seed": true})
	})
}
