package repositories_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"orghierarchy/src/config"
	"orghierarchy/src/infra/postgres"
	"orghierarchy/src/repositories"
	"orghierarchy/src/test_artefacts/stubs"
	"orghierarchy/src/test_artefacts/test_seeder"
)

var _ = Describe("PostgresBranchRepository", Ordered, func() {
	var (
		readWriteClient *postgres.ReadWriteClient
		seeder          test_seeder.TestSeeder
	)

	BeforeAll(func() {
		if testEnv.DBHost == "" {
			Skip("TEST_DB_HOST not set")
		}

		database := config.DatabaseOptions{
			Host:     testEnv.DBHost,
			Port:     testEnv.DBPort,
			Name:     testEnv.DBName,
			User:     testEnv.DBUser,
			Password: testEnv.DBPassword,
		}
		Expect(postgres.MigrateUp(database.MigrationURL())).To(Succeed())

		var err error
		readWriteClient, err = postgres.NewReadWriteClient(
			testEnv.DBHost, testEnv.DBHost,
			testEnv.DBPort, testEnv.DBPort,
			testEnv.DBName, testEnv.DBUser, testEnv.DBPassword,
			testEnv.MaxConnections,
		)
		Expect(err).NotTo(HaveOccurred())

		seeder = test_seeder.New(readWriteClient.GetWritePool())
	})

	BeforeEach(func() {
		seeder.TruncateTables(context.Background())
	})

	AfterAll(func() {
		if readWriteClient != nil {
			readWriteClient.Close()
		}
	})

	branchStoreContract(func() repositories.BranchStore {
		return repositories.NewPostgresBranchRepository(readWriteClient)
	})

	It("round trips every column", func() {
		// ARRANGE
		ctx := context.Background()
		store := repositories.NewPostgresBranchRepository(readWriteClient)
		branch := stubs.NewBranchStub().WithParent("p1").WithChildren("c1", "c2").Blocked().Get()
		seeder.InsertBranch(ctx, branch)

		// ACT
		stored, err := seeder.SelectBranch(ctx, branch.ID)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(BeComparableTo(branch))

		byName, err := store.FindByName(ctx, branch.OrganizationID, branch.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(*byName).To(BeComparableTo(branch))
	})
})
