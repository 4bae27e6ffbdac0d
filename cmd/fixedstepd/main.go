// Command fixedstepd boots a host process running the fixed-timestep
// physics worker and the render worker side by side, with a glfw window
// for input capture, driven by a YAML scenario file.
//
// Grounded on examples/scene.go's NewEngine/.Start() wiring shape,
// generalized from "build a scene, attach one window, run the engine"
// to "load a scenario, spawn both workers through host.Host, run".
package main

import (
	"flag"
	"log"

	"github.com/avidal-labs/fixedstep/engine/window"
	"github.com/avidal-labs/fixedstep/host"
	"github.com/avidal-labs/fixedstep/rendercomp"
	"github.com/avidal-labs/fixedstep/renderworker"
	"github.com/avidal-labs/fixedstep/simconfig"
	"github.com/avidal-labs/fixedstep/simtypes"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a simconfig scenario YAML file")
	headless := flag.Bool("headless", false, "run without a window (no input capture)")
	flag.Parse()

	if *scenarioPath == "" {
		log.Fatal("fixedstepd: -scenario is required")
	}

	scenario, err := simconfig.Load(*scenarioPath)
	if err != nil {
		log.Fatalf("fixedstepd: %v", err)
	}

	var opts []host.Option
	var win window.Window
	if !*headless {
		win = window.NewWindow(
			window.WithTitle(scenario.Name),
			window.WithWidth(1280),
			window.WithHeight(720),
		)
		opts = append(opts, host.WithWindow(win))
	}

	h := host.New(opts...)

	viewport := renderworker.Viewport{Width: 1280, Height: 720, PixelRatio: 1}
	if err := h.Init(scenario.GravityVec(), viewport, false); err != nil {
		log.Fatalf("fixedstepd: init: %v", err)
	}

	playerController := scenario.PlayerController.ToSim()
	playerTransform := simtypes.Transform{Position: scenario.PlayerSpawnVec(), Rotation: simtypes.Quat{W: 1}}
	const playerID simtypes.EntityID = 1
	if err := h.SpawnPlayer(playerID, playerTransform, playerController, rendercomp.PlayerData{}); err != nil {
		log.Fatalf("fixedstepd: spawn player: %v", err)
	}

	for i, spawn := range scenario.Spawns {
		id := simtypes.EntityID(spawn.ID)
		if id == 0 {
			id = simtypes.EntityID(1000 + i)
		}
		position := simtypes.Vec3{X: spawn.Position.X, Y: spawn.Position.Y, Z: spawn.Position.Z}
		transform := simtypes.Transform{Position: position, Rotation: simtypes.Quat{W: 1}}
		bodyConfig := simtypes.PhysicsBodyConfig{Kind: simtypes.BodyStatic, Shape: simtypes.Cuboid(1, 1, 1)}
		if spawn.Body != nil {
			converted, err := spawn.Body.ToSim()
			if err != nil {
				log.Fatalf("fixedstepd: spawn %d body config: %v", id, err)
			}
			bodyConfig = converted
		}
		typeTag := spawn.TypeTag
		if typeTag == "" {
			typeTag = rendercomp.TypeTagStaticMesh
		}
		if err := h.SpawnEntity(id, transform, bodyConfig, typeTag, rendercomp.StaticMeshData{}); err != nil {
			log.Fatalf("fixedstepd: spawn entity %d: %v", id, err)
		}
	}

	defer h.Dispose()

	if err := h.Run(); err != nil {
		log.Fatalf("fixedstepd: run: %v", err)
	}
}
