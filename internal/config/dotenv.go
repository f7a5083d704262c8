package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// DotenvFile is the name of the dotenv file read next to the config file.
const DotenvFile = ".env"

// DotenvPath returns the dotenv file that belongs to configPath. An empty
// configPath means the working directory.
func DotenvPath(configPath string) string {
	if configPath == "" {
		return DotenvFile
	}
	return filepath.Join(filepath.Dir(configPath), DotenvFile)
}

// dotenvKeys records the variables applied from a dotenv file so a later
// load can replace or remove them. Variables set any other way are never
// touched.
var dotenvKeys = struct {
	sync.Mutex
	set map[string]string
}{set: map[string]string{}}

// applyDotenv overlays the dotenv file at path onto the process environment.
// A missing file clears what an earlier load applied.
func applyDotenv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		values = nil
	}

	dotenvKeys.Lock()
	defer dotenvKeys.Unlock()

	for key, applied := range dotenvKeys.set {
		if _, ok := values[key]; ok {
			continue
		}
		if current, ok := os.LookupEnv(key); ok && current == applied {
			os.Unsetenv(key)
		}
		delete(dotenvKeys.set, key)
	}

	for key, value := range values {
		current, ok := os.LookupEnv(key)
		applied, owned := dotenvKeys.set[key]
		if ok && (!owned || current != applied) {
			// set by the process environment
			delete(dotenvKeys.set, key)
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		dotenvKeys.set[key] = value
	}
	return nil
}

// resetDotenv removes every variable applied from a dotenv file.
func resetDotenv() {
	dotenvKeys.Lock()
	defer dotenvKeys.Unlock()
	for key, applied := range dotenvKeys.set {
		if current, ok := os.LookupEnv(key); ok && current == applied {
			os.Unsetenv(key)
		}
	}
	dotenvKeys.set = map[string]string{}
}
