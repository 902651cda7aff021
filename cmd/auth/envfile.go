package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const refreshTokenKey = "SPOTIFY_REFRESH_TOKEN"

// saveRefreshToken sets SPOTIFY_REFRESH_TOKEN in the .env file at path,
// keeping every other entry. The file is created when missing.
func saveRefreshToken(path, token string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		env = existing
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	env[refreshTokenKey] = token
	if err := godotenv.Write(env, path); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
