package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/yuiseki/data-gather/internal/config"
	"github.com/yuiseki/data-gather/internal/model"
)

func main() {
	var file string
	flag.StringVar(&file, "f", "", "YAML file with extra interviews to seed")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database(cfg.MongoDatabase).Collection("interviews")

	interviews := []model.Interview{guessingGame()}
	if file != "" {
		extra, err := loadInterviews(file)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", file, err)
		}
		interviews = append(interviews, extra...)
	}

	for _, interview := range interviews {
		interview.ID = "" // let Mongo assign the ObjectID
		interview.CreatedAt = time.Now()
		interview.UpdatedAt = time.Now()

		// Re-running the seeder replaces by name rather than duplicating.
		if _, err := coll.DeleteMany(ctx, bson.M{"name": interview.Name}); err != nil {
			log.Fatalf("Failed to clear existing %q: %v", interview.Name, err)
		}
		result, err := coll.InsertOne(ctx, interview)
		if err != nil {
			log.Fatalf("Failed to insert %q: %v", interview.Name, err)
		}
		id := ""
		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			id = oid.Hex()
		}
		log.Printf("Seeded interview %q (%s, %d screens)", interview.Name, id, len(interview.Screens))
	}
}

// loadInterviews reads interview definitions from a YAML file. The YAML
// is converted through JSON so the model's json tags apply.
func loadInterviews(path string) ([]model.Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Interviews []map[string]interface{} `yaml:"interviews"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	interviews := make([]model.Interview, 0, len(raw.Interviews))
	for _, entry := range raw.Interviews {
		jsonData, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		var interview model.Interview
		if err := json.Unmarshal(jsonData, &interview); err != nil {
			return nil, err
		}
		interviews = append(interviews, interview)
	}
	return interviews, nil
}

// guessingGame is a small three-branch flow useful for demoing conditional
// routing without any external store
func guessingGame() model.Interview {
	one := 1
	return model.Interview{
		Name:        "Guessing Game",
		Description: "Guess the secret color.",
		Published:   true,
		Screens: []model.Screen{
			{
				ID:                "screen-name",
				Title:             "Welcome",
				HeaderText:        "Let's play a guessing game.",
				Order:             1,
				IsInStartingState: true,
				StartingStateOrder: &one,
				Entries: []model.Entry{
					{
						ID:           "entry-name",
						Order:        1,
						Name:         "Name",
						Prompt:       "What is your name?",
						Required:     true,
						ResponseKey:  "name",
						ResponseType: model.ResponseTypeText,
					},
				},
			},
			{
				ID:         "screen-guess",
				Title:      "Guess",
				HeaderText: "I'm thinking of a color.",
				Order:      2,
				Entries: []model.Entry{
					{
						ID:           "entry-guess",
						Order:        1,
						Name:         "Guess",
						Prompt:       "What color am I thinking of?",
						Required:     true,
						ResponseKey:  "guess",
						ResponseType: model.ResponseTypeText,
					},
				},
				Actions: []model.ConditionalAction{
					{
						ID:               "action-wrong-guess",
						Order:            1,
						EntryID:          "entry-guess",
						Operator:         model.OperatorNotEquals,
						Value:            "green",
						Action:           model.ActionGotoScreen,
						TargetScreenID:   "screen-wrong",
					},
				},
			},
			{
				ID:         "screen-wrong",
				Title:      "Not quite",
				HeaderText: "That's not it.",
				Order:      3,
				Entries: []model.Entry{
					{
						ID:           "entry-retry",
						Order:        1,
						Name:         "Retry",
						Prompt:       "Want a hint? It's the color of grass.",
						ResponseKey:  "retry",
						ResponseType: model.ResponseTypeBoolean,
					},
				},
				Actions: []model.ConditionalAction{
					{
						ID:       "action-give-up",
						Order:    1,
						EntryID:  "entry-retry",
						Operator: model.OperatorAnswered,
						Action:   model.ActionEndInterview,
					},
				},
			},
			{
				ID:         "screen-correct",
				Title:      "Correct!",
				HeaderText: "You guessed it.",
				Order:      4,
			},
		},
	}
}
