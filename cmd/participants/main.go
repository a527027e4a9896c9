/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"prime-conversion-go/internal/common"
	"prime-conversion-go/internal/config"
	"prime-conversion-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func listParticipants(ctx context.Context, ledger store.ConsumerLedger, emailFilter string) {
	participants, err := common.LookupParticipants(ctx, ledger, emailFilter)
	if err != nil {
		zap.L().Fatal("Failed to look up participants", zap.Error(err))
	}

	common.PrintHeader("PARTICIPANTS", common.WideWidth)
	for i, p := range participants {
		isLast := i == len(participants)-1
		fmt.Printf("%s%-36s  %-24s  %s\n", common.BoxPrefix(isLast), p.Id, p.Name, p.Email)
	}
	common.PrintFooter(fmt.Sprintf("TOTAL: %d participants", len(participants)), common.WideWidth)
}

func createParticipant(ctx context.Context, ledger store.ConsumerLedger, name, email string) {
	if err := validateName(name); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(email); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	participantId := uuid.New().String()

	zap.L().Info("Creating participant in ledger",
		zap.String("id", participantId),
		zap.String("name", name),
		zap.String("email", email))

	participant, err := ledger.CreateParticipant(ctx, participantId, name, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, store.ErrParticipantExists) {
			zap.L().Fatal("Participant already exists with this email", zap.String("email", email))
		}
		zap.L().Fatal("Failed to create participant", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("PARTICIPANT CREATED", common.DefaultWidth)
	fmt.Printf("ID:    %s\n", participant.Id)
	fmt.Printf("Name:  %s\n", participant.Name)
	fmt.Printf("Email: %s\n", participant.Email)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Participant created successfully", zap.String("id", participant.Id))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Participant's full name (required to create)")
	emailFlag := flag.String("email", "", "Participant's email address; filters the listing when -name is omitted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	ledger, err := common.InitializeLedger(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize ledger", zap.Error(err))
	}
	defer ledger.Close()

	if *nameFlag == "" {
		listParticipants(ctx, ledger, *emailFlag)
		return
	}

	createParticipant(ctx, ledger, *nameFlag, *emailFlag)
}
