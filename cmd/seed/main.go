package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"courseforge/internal/domain/model"
	pg "courseforge/internal/infra/db/postgres"

	"courseforge/internal/config"
	"courseforge/internal/domain/ports/repository"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	courseRepo := pg.NewCourseRepo(pool)

	// If courses already exist, do nothing
	n, err := courseRepo.Count(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("count courses: %v", err)
	}
	if n > 0 {
		fmt.Printf("%d courses already present. No changes.\n", n)
		return
	}

	// Seed a few sample public courses so the "exists" path is testable
	seed := []struct {
		Topic string
		Title string
	}{
		{"go-concurrency", "Go Concurrency Patterns"},
		{"sql-basics", "SQL Fundamentals"},
	}

	for _, s := range seed {
		outline := &model.CourseOutline{
			Title:       s.Title,
			Description: "Seeded demo course.",
			Sections: []model.CourseSection{
				{
					Title: "Introduction",
					Lessons: []model.CourseLesson{
						{Title: "Overview", Summary: "What this course covers."},
					},
				},
			},
		}
		course := model.NewCourseFromOutline(outline, model.SourceTypeTopic, s.Topic, "", "seed")
		if err := courseRepo.Save(ctx, repository.NoTX, course); err != nil {
			log.Fatalf("save course %q: %v", s.Title, err)
		}
		fmt.Printf("seeded: %s (id=%s, source=%s)\n", course.Title, course.ID, course.SourceID)
	}

	fmt.Println("Seeding complete.")
}
