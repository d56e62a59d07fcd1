package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"

	"orghierarchy/src/adapters/kafka/consumers"
	"orghierarchy/src/config"
	"orghierarchy/src/domain"
	"orghierarchy/src/infra/kafka"
	"orghierarchy/src/infra/postgres"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/hierarchy"
)

func main() {
	organizationID := flag.String("org", "", "Organization id (random uuid when empty)")
	roots := flag.Int("roots", 3, "Number of root branches")
	depth := flag.Int("depth", 4, "Maximum depth of each tree")
	fanout := flag.Int("fanout", 3, "Maximum children per branch")
	diamonds := flag.Int("diamonds", 0, "Branches re-parented while keeping the old parent (service sink only)")
	sink := flag.String("sink", "service", "Where to write: service (STORE_DRIVER) or kafka (import topic)")
	batchSize := flag.Int("batch-size", 100, "Number of messages per Kafka batch")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	if *roots < 1 || *depth < 1 || *fanout < 1 {
		log.Fatal("-roots, -depth and -fanout must be at least 1")
	}

	if *organizationID == "" {
		*organizationID = faker.UUIDHyphenated()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping...")
		cancel()
	}()

	rng := rand.New(rand.NewSource(*seed))
	planned := planHierarchy(rng, *roots, *depth, *fanout)
	log.Printf("Generating %d branches for organization %s (seed %d)", len(planned), *organizationID, *seed)

	startTime := time.Now()

	switch *sink {
	case "kafka":
		if !cfg.Kafka.Enabled() {
			log.Fatal("KAFKA_BROKERS is required for the kafka sink")
		}
		if err := sendToKafka(logger, cfg, *organizationID, planned, *batchSize); err != nil {
			log.Fatalf("Failed to publish import messages: %v", err)
		}
	default:
		store, closeStore, err := newStore(cfg)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer closeStore()

		service := hierarchy.NewBranchService(logger, store, nil, hierarchy.Options{StrictSingleParent: false})
		if err := writeThroughService(ctx, service, rng, *organizationID, planned, *diamonds); err != nil {
			log.Fatalf("Failed to generate hierarchy: %v", err)
		}

		if cfg.Hierarchy.StoreDriver == config.StoreDriverMemory {
			printForest(ctx, service, *organizationID)
		}
	}

	log.Printf("✅ Completed! %d branches in %v", len(planned), time.Since(startTime))
}

func newStore(cfg *config.Config) (repositories.BranchStore, func(), error) {
	if cfg.Hierarchy.StoreDriver != config.StoreDriverPostgres {
		return repositories.NewMemoryBranchRepository(), func() {}, nil
	}

	if err := postgres.MigrateUp(cfg.Database.MigrationURL()); err != nil {
		return nil, nil, err
	}

	client, err := postgres.NewReadWriteClient(
		cfg.Database.Host, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Port,
		cfg.Database.Name, cfg.Database.User, cfg.Database.Password,
		cfg.Database.MaxConnections,
	)
	if err != nil {
		return nil, nil, err
	}

	return repositories.NewPostgresBranchRepository(client), client.Close, nil
}

func systemCaller(organizationID string) domain.CallerContext {
	return domain.CallerContext{
		OrganizationID: organizationID,
		UserID:         "datagen",
		Role:           domain.RoleSystem,
	}
}

func writeThroughService(
	ctx context.Context,
	service *hierarchy.BranchService,
	rng *rand.Rand,
	organizationID string,
	planned []plannedBranch,
	diamonds int,
) error {
	caller := systemCaller(organizationID)
	ids := make(map[string]string, len(planned))
	byLevel := make(map[int][]string)

	for i, p := range planned {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req := domain.CreateBranchRequest{Name: p.Name, Address: p.Address}
		if p.ParentName != "" {
			parentID := ids[p.ParentName]
			req.ParentID = &parentID
		}

		branch, err := service.Create(ctx, caller, req)
		if err != nil {
			return err
		}
		ids[p.Name] = branch.ID
		byLevel[p.Level] = append(byLevel[p.Level], branch.ID)

		if (i+1)%500 == 0 {
			log.Printf("Created %d/%d branches", i+1, len(planned))
		}
	}

	// Diamantes: troca o pai sem modo estrito, o pai antigo continua listando o filho
	created := 0
	for attempt := 0; created < diamonds && attempt < diamonds*10; attempt++ {
		level := 1 + rng.Intn(max(1, len(byLevel)-1))
		children, parents := byLevel[level], byLevel[level-1]
		if len(children) == 0 || len(parents) < 2 {
			continue
		}

		childID := children[rng.Intn(len(children))]
		newParentID := parents[rng.Intn(len(parents))]

		_, err := service.Edit(ctx, caller, domain.EditBranchRequest{ID: childID, ParentID: &newParentID})
		if err != nil {
			log.Printf("Skipping diamond %s -> %s: %v", newParentID, childID, err)
			continue
		}
		created++
	}
	if diamonds > 0 {
		log.Printf("Created %d diamond links", created)
	}

	return nil
}

func sendToKafka(logger *slog.Logger, cfg *config.Config, organizationID string, planned []plannedBranch, batchSize int) error {
	kafkaClient, err := kafka.NewKafkaClient(logger, cfg.Kafka.Brokers, cfg.Kafka.ImportGroupID, batchSize)
	if err != nil {
		return err
	}
	defer kafkaClient.Close()

	batch := make([]kafka.Message, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := kafkaClient.Producer(batch, cfg.Kafka.ImportTopic); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, p := range planned {
		address := p.Address
		payload, err := json.Marshal(consumers.BranchImportMessage{
			OrganizationID: organizationID,
			Name:           p.Name,
			ParentName:     p.ParentName,
			Address:        &address,
			CreatedBy:      "datagen",
		})
		if err != nil {
			return err
		}

		// Mesma chave por organização: o lote inteiro cai na mesma partição
		batch = append(batch, kafka.Message{Key: organizationID, Value: payload})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

func printForest(ctx context.Context, service *hierarchy.BranchService, organizationID string) {
	forest, err := service.ListForest(ctx, systemCaller(organizationID))
	if err != nil {
		log.Printf("Failed to list forest: %v", err)
		return
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(forest); err != nil {
		log.Printf("Failed to encode forest: %v", err)
	}
}
