// talentflow-pipeline-service
//
// Recruitment pipeline orchestration: Phase → Workflow → Stage configuration
// and the engine moving company candidates through it.
//
// Commands arrive in-process style over the CMD_PIPELINE Redis channel and
// are dispatched through an explicit registry:
//   - assignWorkflow(workItemId, workflowId, initialStageId) — first pipeline entry
//   - changeStage(workItemId, targetStageId, actor)          — stage transitions,
//     SUCCESS-stage cross-phase cascade, automatic interview creation
//   - initialize(companyId, pipelineType, phases)            — rebuild phase layout
//
// Publishes CMD_CREATE_INTERVIEW and EVENT_STAGE_CHANGED to Redis; a cron
// sweep flags work items past their stage deadline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentflow/pipeline-service/internal/command"
	"talentflow/pipeline-service/internal/config"
	"talentflow/pipeline-service/internal/db"
	"talentflow/pipeline-service/internal/deadline"
	"talentflow/pipeline-service/internal/events"
	"talentflow/pipeline-service/internal/pipeline"
	"talentflow/pipeline-service/internal/repository"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[pipeline-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[pipeline-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[pipeline-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[pipeline-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[pipeline-service] Redis connected ✓")

	// ── Repositories and services ────────────────────────────────────────────
	phases := repository.NewPhaseRepo(pool)
	workflows := repository.NewWorkflowRepo(pool)
	stages := repository.NewStageRepo(pool)
	items := repository.NewWorkItemRepo(pool)
	assignments := repository.NewAssignmentRepo(pool)
	interviews := repository.NewInterviewRepo(pool)

	publisher := events.NewPublisher(rdb)
	validator := pipeline.NewValidator(stages, workflows)
	permissions := pipeline.NewPermissionService(assignments, assignments)
	trigger := pipeline.NewInterviewTrigger(interviews, interviews, publisher)
	transitions := pipeline.NewTransitionService(
		items, stages, workflows, phases, validator, interviews, trigger, publisher)
	initializer := pipeline.NewInitializer(phases)

	// ── Command registry + listener ──────────────────────────────────────────
	registry := command.NewRegistry()
	if err := command.Wire(registry, command.Deps{
		Items:       items,
		Stages:      stages,
		Transitions: transitions,
		Permissions: permissions,
		Initializer: initializer,
		Pending:     interviews,
	}); err != nil {
		log.Fatalf("[pipeline-service] Command wiring: %v", err)
	}
	listener := command.NewListener(rdb, registry)
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("[pipeline-service] Command listener: %v", err)
	}

	// ── Deadline sweeper ─────────────────────────────────────────────────────
	sweeper := deadline.New(items, publisher, cfg.DeadlineSweepHours)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("[pipeline-service] Deadline sweeper: %v", err)
	}
	defer sweeper.Stop()

	// ── HTTP server (health only) ────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[pipeline-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[pipeline-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[pipeline-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[pipeline-service] Shutdown error: %v", err)
	}
	log.Println("[pipeline-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "pipeline-service",
		"version": version,
	})
}
