package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/condition"
	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/internal/publish"
	"github.com/cadencehq/cadence/internal/scheduler"
	"github.com/cadencehq/cadence/internal/session"
	"github.com/cadencehq/cadence/internal/store"
	"github.com/cadencehq/cadence/internal/validation"
	"github.com/cadencehq/cadence/pkg/schema"
)

type server struct {
	sessions  *session.Manager
	publisher *publish.Publisher
	store     store.Store
}

// newApp builds the authoring API.
func newApp(s *server) *fiber.App {
	app := fiber.New()

	// ── Catalog ───────────────────────────────────────────────────────
	app.Get("/catalog", func(c fiber.Ctx) error {
		return c.JSON(schema.Catalog())
	})

	// ── Graph ─────────────────────────────────────────────────────────
	app.Post("/campaigns/:id/open", func(c fiber.Ctx) error {
		var body struct {
			Kind schema.SequenceKind `json:"kind"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return badBody(c)
		}
		if body.Kind == "" {
			body.Kind = schema.SequenceBatch
		}
		sess, err := s.sessions.Open(c.Context(), c.Params("id"), body.Kind)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(sess.Graph.Snapshot())
	})

	app.Get("/campaigns/:id/graph", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(sess.Graph.Snapshot())
	})

	app.Put("/campaigns/:id/graph", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		var snap schema.Snapshot
		if err := c.Bind().JSON(&snap); err != nil {
			return badBody(c)
		}
		sess.Graph.Restore(snap)
		return c.JSON(sess.Graph.Snapshot())
	})

	app.Get("/campaigns/:id/validate", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(validation.ValidateSnapshot(sess.Graph.Snapshot()))
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/campaigns/:id/nodes", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		var node schema.Node
		if err := c.Bind().JSON(&node); err != nil {
			return badBody(c)
		}
		if node.ID == "" {
			node.ID = uuid.NewString()
		}
		if err := sess.Graph.AddNode(node); err != nil {
			return fail(c, err)
		}
		stored, _ := sess.Graph.Node(node.ID)
		return c.Status(201).JSON(stored)
	})

	app.Patch("/campaigns/:id/nodes/:nodeId", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		body := c.Body()
		if err := sess.Graph.UpdateNode(c.Params("nodeId"), body); err != nil {
			return fail(c, err)
		}
		stored, _ := sess.Graph.Node(c.Params("nodeId"))
		return c.JSON(stored)
	})

	app.Delete("/campaigns/:id/nodes/:nodeId", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		sess.Graph.RemoveNode(c.Params("nodeId"))
		return c.SendStatus(204)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/campaigns/:id/edges", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		var edge schema.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return badBody(c)
		}
		if edge.ID == "" {
			edge.ID = uuid.NewString()
		}
		if err := sess.Graph.AddEdge(edge); err != nil {
			return fail(c, err)
		}
		stored, _ := sess.Graph.Edge(edge.ID)
		return c.Status(201).JSON(stored)
	})

	app.Patch("/campaigns/:id/edges/:edgeId", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		if err := sess.Graph.UpdateEdge(c.Params("edgeId"), c.Body()); err != nil {
			return fail(c, err)
		}
		stored, _ := sess.Graph.Edge(c.Params("edgeId"))
		return c.JSON(stored)
	})

	app.Put("/campaigns/:id/edges/:edgeId/delay", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		var delay schema.DelayData
		if err := c.Bind().JSON(&delay); err != nil {
			return badBody(c)
		}
		if err := sess.Graph.SetDelay(c.Params("edgeId"), delay); err != nil {
			return fail(c, err)
		}
		stored, _ := sess.Graph.Edge(c.Params("edgeId"))
		return c.JSON(stored)
	})

	app.Delete("/campaigns/:id/edges/:edgeId", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		sess.Graph.RemoveEdge(c.Params("edgeId"))
		return c.SendStatus(204)
	})

	// ── Connection completion ─────────────────────────────────────────
	app.Get("/connections/menu", func(c fiber.Ctx) error {
		return c.JSON(graph.CompletionMenu())
	})

	app.Post("/campaigns/:id/connections/complete", func(c fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return fail(c, err)
		}
		var body struct {
			Source       string          `json:"source"`
			SourceHandle string          `json:"sourceHandle"`
			Type         schema.NodeType `json:"type"`
			Position     schema.Position `json:"position"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return badBody(c)
		}
		node, edge, err := graph.CompleteConnection(sess.Graph, body.Source, body.SourceHandle, body.Type, body.Position)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"node": node, "edge": edge})
	})

	// ── Switch conditions ─────────────────────────────────────────────
	app.Get("/campaigns/:id/switches/:nodeId", func(c fiber.Ctx) error {
		eng, err := s.engine(c)
		if err != nil {
			return fail(c, err)
		}
		cases, err := eng.Cases()
		if err != nil {
			return fail(c, err)
		}
		stale, err := eng.StaleRules()
		if err != nil {
			return fail(c, err)
		}
		inputs, err := eng.InputSockets()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"conditions":       cases,
			"inputIds":         inputs,
			"connected_events": eng.ConnectedEvents(),
			"stale_rules":      stale,
		})
	})

	app.Post("/campaigns/:id/switches/:nodeId/cases", func(c fiber.Ctx) error {
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.AddCase()
		})
	})

	app.Delete("/campaigns/:id/switches/:nodeId/cases/:caseIndex", func(c fiber.Ctx) error {
		i, err := index(c, "caseIndex")
		if err != nil {
			return badBody(c)
		}
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.RemoveCase(i)
		})
	})

	app.Put("/campaigns/:id/switches/:nodeId/cases/:caseIndex/logic", func(c fiber.Ctx) error {
		i, err := index(c, "caseIndex")
		if err != nil {
			return badBody(c)
		}
		var body struct {
			Logic schema.CaseLogic `json:"logic"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return badBody(c)
		}
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.SetCaseLogic(i, body.Logic)
		})
	})

	app.Post("/campaigns/:id/switches/:nodeId/cases/:caseIndex/rules", func(c fiber.Ctx) error {
		i, err := index(c, "caseIndex")
		if err != nil {
			return badBody(c)
		}
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.AddRule(i)
		})
	})

	app.Put("/campaigns/:id/switches/:nodeId/cases/:caseIndex/rules/:ruleIndex", func(c fiber.Ctx) error {
		i, err := index(c, "caseIndex")
		if err != nil {
			return badBody(c)
		}
		j, err := index(c, "ruleIndex")
		if err != nil {
			return badBody(c)
		}
		var body struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return badBody(c)
		}
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.SetRule(i, j, body.Field, body.Value)
		})
	})

	app.Delete("/campaigns/:id/switches/:nodeId/cases/:caseIndex/rules/:ruleIndex", func(c fiber.Ctx) error {
		i, err := index(c, "caseIndex")
		if err != nil {
			return badBody(c)
		}
		j, err := index(c, "ruleIndex")
		if err != nil {
			return badBody(c)
		}
		return s.mutateSwitch(c, func(eng *condition.Engine) error {
			return eng.RemoveRule(i, j)
		})
	})

	app.Post("/campaigns/:id/switches/:nodeId/inputs", func(c fiber.Ctx) error {
		eng, err := s.engine(c)
		if err != nil {
			return fail(c, err)
		}
		id, err := eng.AddInputSocket()
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Delete("/campaigns/:id/switches/:nodeId/inputs/:inputId", func(c fiber.Ctx) error {
		eng, err := s.engine(c)
		if err != nil {
			return fail(c, err)
		}
		if err := eng.RemoveInputSocket(c.Params("inputId")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Compile & publish ─────────────────────────────────────────────
	app.Get("/campaigns/:id/steps", func(c fiber.Ctx) error {
		steps, err := s.publisher.Preview(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(steps)
	})

	app.Post("/campaigns/:id/publish", func(c fiber.Ctx) error {
		if err := s.publisher.Publish(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "published"})
	})

	// ── Scheduled publishes ───────────────────────────────────────────
	app.Post("/campaigns/:id/schedules", func(c fiber.Ctx) error {
		var body struct {
			CronExpr string `json:"cron_expr"`
		}
		if err := c.Bind().JSON(&body); err != nil || body.CronExpr == "" {
			return badBody(c)
		}
		next, err := scheduler.NextRun(body.CronExpr, time.Now().UTC())
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		sp := &store.ScheduledPublish{
			ID:         uuid.NewString(),
			CampaignID: c.Params("id"),
			CronExpr:   body.CronExpr,
			Enabled:    true,
			NextRunAt:  &next,
		}
		if err := s.store.CreateScheduledPublish(c.Context(), sp); err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(sp)
	})

	app.Get("/campaigns/:id/schedules", func(c fiber.Ctx) error {
		list, err := s.store.ListScheduledPublishes(c.Context(), store.ScheduledPublishFilter{
			CampaignID: c.Params("id"),
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	app.Patch("/schedules/:scheduleId", func(c fiber.Ctx) error {
		var body struct {
			Enabled *bool `json:"enabled"`
		}
		if err := c.Bind().JSON(&body); err != nil || body.Enabled == nil {
			return badBody(c)
		}
		if err := s.store.SetScheduledPublishEnabled(c.Context(), c.Params("scheduleId"), *body.Enabled); err != nil {
			return fail(c, err)
		}
		sp, err := s.store.GetScheduledPublish(c.Context(), c.Params("scheduleId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(sp)
	})

	app.Delete("/schedules/:scheduleId", func(c fiber.Ctx) error {
		if err := s.store.DeleteScheduledPublish(c.Context(), c.Params("scheduleId")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	return app
}

// session resolves the campaign on the request path, opening it (batch kind
// unless overridden with ?kind=) when it is not yet loaded.
func (s *server) session(c fiber.Ctx) (*session.Session, error) {
	kind := schema.SequenceKind(c.Query("kind", string(schema.SequenceBatch)))
	return s.sessions.Open(c.Context(), c.Params("id"), kind)
}

func (s *server) engine(c fiber.Ctx) (*condition.Engine, error) {
	sess, err := s.session(c)
	if err != nil {
		return nil, err
	}
	return condition.NewEngine(sess.Graph, c.Params("nodeId"))
}

func (s *server) mutateSwitch(c fiber.Ctx, op func(*condition.Engine) error) error {
	eng, err := s.engine(c)
	if err != nil {
		return fail(c, err)
	}
	if err := op(eng); err != nil {
		return fail(c, err)
	}
	cases, err := eng.Cases()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conditions": cases})
}

func index(c fiber.Ctx, name string) (int, error) {
	i, err := strconv.Atoi(c.Params(name))
	if err != nil {
		return 0, errors.New("bad index")
	}
	return i, nil
}

func badBody(c fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch schema.CodeOf(err) {
	case schema.ErrCodeNotFound:
		return 404
	case schema.ErrCodeDuplicateID, schema.ErrCodeUnknownNodeType,
		schema.ErrCodeValidation, schema.ErrCodeDanglingEdge, schema.ErrCodeCompile:
		return 422
	case schema.ErrCodeMigrationInProgress:
		return 409
	default:
		return 500
	}
}
