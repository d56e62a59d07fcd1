package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-faker/faker/v4"

	"orghierarchy/src/domain/entities"
)

// plannedBranch é um nó da hierarquia gerada, ainda sem id.
type plannedBranch struct {
	Name       string
	ParentName string
	Level      int
	Address    entities.Address
}

// planHierarchy gera roots árvores com a profundidade e o fanout pedidos.
// Pais sempre aparecem antes dos filhos na lista retornada.
func planHierarchy(rng *rand.Rand, roots int, depth int, fanout int) []plannedBranch {
	planned := make([]plannedBranch, 0)
	counter := 0

	nextName := func(prefix string) string {
		counter++
		word := faker.Word()
		word = strings.ToUpper(word[:1]) + word[1:]
		return fmt.Sprintf("%s %s %05d", prefix, word, counter)
	}

	var grow func(parent string, level int)
	grow = func(parent string, level int) {
		if level >= depth {
			return
		}
		children := 1 + rng.Intn(fanout)
		for i := 0; i < children; i++ {
			name := nextName("Filial")
			planned = append(planned, plannedBranch{
				Name:       name,
				ParentName: parent,
				Level:      level,
				Address:    randomAddress(),
			})
			grow(name, level+1)
		}
	}

	for i := 0; i < roots; i++ {
		name := nextName("Matriz")
		planned = append(planned, plannedBranch{Name: name, Level: 0, Address: randomAddress()})
		grow(name, 1)
	}

	return planned
}

func randomAddress() entities.Address {
	real := faker.GetRealAddress()
	return entities.Address{
		Street:  real.Address,
		Number:  fmt.Sprintf("%d", 1+rand.Intn(9999)),
		City:    real.City,
		State:   real.State,
		ZipCode: real.PostalCode,
		Country: "US",
	}
}
