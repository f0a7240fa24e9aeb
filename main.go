package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Development seeder: loads sample_logs.csv into a local engine so the chat
// pipeline has data to query. Expected columns:
// timestamp,level,status,client_ip,message
func main() {
	cfg := elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatalf("Error creating Elasticsearch client: %v", err)
	}

	file, err := os.Open("sample_logs.csv")
	if err != nil {
		log.Fatalf("Error opening CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 5

	ctx := context.Background()

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Error reading CSV row: %v", err)
			continue
		}
		row++

		doc := map[string]interface{}{
			"timestamp": record[0],
			"level":     record[1],
			"status":    record[2],
			"client_ip": record[3],
			"message":   record[4],
		}

		docJSON, err := json.Marshal(doc)
		if err != nil {
			log.Printf("Error marshaling document: %v", err)
			continue
		}

		docID := fmt.Sprintf("sample-%d", row)
		req := esapi.IndexRequest{
			Index:      "sample-logs",
			DocumentID: docID,
			Body:       strings.NewReader(string(docJSON)),
			Refresh:    "true",
		}

		res, err := req.Do(ctx, es)
		if err != nil {
			log.Printf("Error indexing document %s: %v", docID, err)
			continue
		}
		defer res.Body.Close()

		if res.IsError() {
			log.Printf("Error response from Elasticsearch for document %s: %s", docID, res.String())
		} else {
			fmt.Printf("Indexed document %s successfully\n", docID)
		}
	}
}
