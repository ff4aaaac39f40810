package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/service"
	"golang.org/x/term"
)

func main() {
	var examFlag string
	flag.StringVar(&examFlag, "exam", "", "ID of the exam the student is enrolled in")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	examID, err := uuid.Parse(examFlag)
	if err != nil {
		fmt.Println("Usage: create-student -exam <exam uuid>")
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	exams := repository.NewExamRepository(pool)
	schedule, err := exams.GetSchedule(ctx, examID)
	if err != nil {
		log.Fatal().Err(err).Str("exam_id", examID.String()).Msg("Exam not found")
	}

	accounts := service.NewAccountService(
		repository.NewStudentRepository(pool),
		repository.NewAdminRepository(pool),
		service.NewAuthService(cfg, nil),
	)

	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("=== Enroll Student in %q ===\n", schedule.Title)

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		fmt.Println("Error: Username must be at least 3 characters")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	fmt.Println()
	password := string(bytePassword)
	if len(password) < 4 {
		fmt.Println("Error: Password must be at least 4 characters")
		return
	}

	student, err := accounts.CreateStudent(ctx, username, name, password, examID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			fmt.Println("Error: username is already taken")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create student")
	}

	fmt.Printf("\nSuccess! Student '%s' (%s) created with ID: %d\n", student.Name, student.Username, student.ID)
}
