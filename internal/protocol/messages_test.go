package protocol

import (
	"encoding/json"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"fightcore/internal/sim"
)

func TestInputMessageValidate(t *testing.T) {
	Convey("Given an InputMessage", t, func() {
		Convey("When buttons is within [0, ButtonsMax]", func() {
			msg := InputMessage{Buttons: int(sim.ButtonsMax), AimX: 1, AimY: -1}
			So(msg.Validate(), ShouldBeNil)
		})

		Convey("When buttons is negative", func() {
			msg := InputMessage{Buttons: -1}
			So(msg.Validate(), ShouldNotBeNil)
		})

		Convey("When buttons exceeds ButtonsMax", func() {
			msg := InputMessage{Buttons: int(sim.ButtonsMax) + 1}
			So(msg.Validate(), ShouldNotBeNil)
		})

		Convey("When aim_x is NaN", func() {
			msg := InputMessage{Buttons: 0, AimX: math.NaN(), AimY: 0}
			So(msg.Validate(), ShouldNotBeNil)
		})

		Convey("When aim_y is infinite", func() {
			msg := InputMessage{Buttons: 0, AimX: 0, AimY: math.Inf(1)}
			So(msg.Validate(), ShouldNotBeNil)
		})
	})
}

func TestInputMessageToSimInput(t *testing.T) {
	Convey("Given a validated InputMessage", t, func() {
		msg := InputMessage{Buttons: int(sim.ButtonLeft | sim.ButtonJump), AimX: 0.5, AimY: 0.25}
		in := msg.ToSimInput()

		Convey("Its buttons and aim carry over unchanged", func() {
			So(in.Buttons, ShouldEqual, sim.ButtonLeft|sim.ButtonJump)
			So(in.AimX, ShouldEqual, 0.5)
			So(in.AimY, ShouldEqual, 0.25)
		})
	})
}

func TestEncodeRoundTrips(t *testing.T) {
	Convey("Given a State payload", t, func() {
		s := sim.NewInitialState(&sim.MatchConfig{PlayerCount: 2, InitialLives: 1, Map: testArena()})
		wire := StateFromSim(&s, [2]sim.Buttons{})

		data, err := Encode("state", wire)
		So(err, ShouldBeNil)

		Convey("It decodes back into an envelope carrying the same tick", func() {
			var env Envelope
			So(json.Unmarshal(data, &env), ShouldBeNil)
			So(env.Type, ShouldEqual, "state")

			var decoded State
			So(json.Unmarshal(env.Data, &decoded), ShouldBeNil)
			So(decoded.Tick, ShouldEqual, wire.Tick)
			So(len(decoded.Players), ShouldEqual, 2)
		})
	})
}

func testArena() sim.GameMap {
	return sim.GameMap{
		Name: "test", Width: 800, Height: 450,
		Platforms:   []sim.Platform{{X: 0, Y: 400, W: 800, H: 50}},
		SpawnPoints: []sim.SpawnPoint{{X: 100, Y: 300}, {X: 700, Y: 300}},
	}
}
