package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .kengine.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to kengine! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "Database file",
		Default: cfg.DatabasePath,
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	cfg.DatabasePath = dbPath

	// 2. Embedding model.
	modelPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: EmbeddingModels,
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model selection: %w", err)
	}
	cfg.Embedding.Model = model

	// 3. Chunk size.
	chunkPrompt := promptui.Prompt{
		Label:   "Chunk size in tokens",
		Default: strconv.Itoa(cfg.Chunking.MaxTokens),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive number")
			}
			return nil
		},
	}
	chunkStr, err := chunkPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Chunking.MaxTokens, _ = strconv.Atoi(chunkStr)

	// 4. Default namespace.
	nsPrompt := promptui.Prompt{
		Label:   "Default document namespace",
		Default: cfg.Import.Namespace,
	}
	namespace, err := nsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("namespace: %w", err)
	}
	cfg.Import.Namespace = namespace

	// 5. Remote vector store for the namespace (optional).
	storePrompt := promptui.Prompt{
		Label:   fmt.Sprintf("Vector store ID for namespace %q (leave blank to skip sync)", namespace),
		Default: "",
	}
	storeID, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	if storeID != "" {
		cfg.VectorStores[namespace] = storeID
	}

	// 6. Server port.
	portPrompt := promptui.Prompt{
		Label:   "API server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("must be a valid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if OpenAIAPIKey() == "" {
		fmt.Println("\nNote: Set OPENAI_API_KEY in your environment before processing or syncing documents.")
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
