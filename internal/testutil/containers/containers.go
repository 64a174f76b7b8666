// containers.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package containers starts the database, broker and gamestore
// containers used by integration tests and cmd/testcontainers.
// Settings come from the environment (usually a .env file).
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/localnerve/gamestore/data"
)

const (
	dbAlias    = "db"
	redisAlias = "redis"
	appImage   = "gamestore-test:latest"
)

// Env is the container configuration.
type Env struct {
	DBType       string
	DBImage      string
	DBPort       string
	Database     string
	User         string
	Password     string
	RootPassword string
	ReadUser     string
	ReadPassword string
	RedisImage   string
	AppPort      string
	BuildContext string
	JWTSecret    string
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvFromOS reads Env from environment variables.
func EnvFromOS() Env {
	dbType := getenv("DB_TYPE", "mariadb")
	port := "3306"
	if dbType == "postgres" {
		port = "5432"
	}
	return Env{
		DBType:       dbType,
		DBImage:      os.Getenv("DB_IMAGE"),
		DBPort:       getenv("DB_PORT", port),
		Database:     getenv("DB_DATABASE", "gamestore"),
		User:         getenv("DB_USER", "gamestore"),
		Password:     getenv("DB_PASSWORD", "gamestore"),
		RootPassword: getenv("DB_ROOT_PASSWORD", "root"),
		ReadUser:     getenv("DB_READ_USER", "gamestore_reader"),
		ReadPassword: getenv("DB_READ_PASSWORD", "gamestore_reader"),
		RedisImage:   os.Getenv("REDIS_IMAGE"),
		AppPort:      getenv("PORT", "3000"),
		BuildContext: getenv("TESTCONTAINERS_BUILD_CONTEXT", "../.."),
		JWTSecret:    getenv("JWT_SECRET", "testcontainers-secret"),
	}
}

// Stack is a set of running containers on one network.
type Stack struct {
	Env     Env
	Network *testcontainers.DockerNetwork
	DB      testcontainers.Container
	Redis   testcontainers.Container
	App     testcontainers.Container
	Builder testcontainers.Container
}

// Terminate stops every started container and removes the network.
func (s *Stack) Terminate(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]testcontainers.Container{
		"gamestore":         s.App,
		"gamestore builder": s.Builder,
		"redis":             s.Redis,
		"database":          s.DB,
	} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate %s: %v", name, err)
		}
	}
	if s.Network != nil {
		if err := s.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// StartDatabase starts the database container and creates the
// application and read-only accounts.
func StartDatabase(ctx context.Context, t *testing.T, env Env) (*Stack, error) {
	if env.DBImage == "" {
		return nil, fmt.Errorf("DB_IMAGE is not set")
	}
	s := &Stack{Env: env}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	s.Network = nw

	port, err := nat.NewPort("tcp", env.DBPort)
	if err != nil {
		s.Terminate(t)
		return nil, fmt.Errorf("db port: %w", err)
	}
	db, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          env.DBImage,
			ExposedPorts:   []string{string(port)},
			Env:            dbInitEnv(env),
			WaitingFor:     wait.ForListeningPort(port).WithStartupTimeout(90 * time.Second),
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {dbAlias}},
		},
		Started: true,
	})
	if err != nil {
		s.Terminate(t)
		return nil, fmt.Errorf("start database: %w", err)
	}
	s.DB = db

	if err := s.initDatabase(ctx); err != nil {
		s.Terminate(t)
		return nil, err
	}
	logMessage(t, "Database %s ready", env.DBImage)
	return s, nil
}

// DBEndpoint is the host and mapped port of the database.
func (s *Stack) DBEndpoint(ctx context.Context) (string, string, error) {
	host, err := s.DB.Host(ctx)
	if err != nil {
		return "", "", err
	}
	port, err := s.DB.MappedPort(ctx, nat.Port(s.Env.DBPort+"/tcp"))
	if err != nil {
		return "", "", err
	}
	return host, port.Port(), nil
}

func dbInitEnv(env Env) map[string]string {
	if env.DBType == "postgres" {
		return map[string]string{
			"POSTGRES_USER":     env.User,
			"POSTGRES_PASSWORD": env.Password,
			"POSTGRES_DB":       env.Database,
		}
	}
	return map[string]string{"MYSQL_ROOT_PASSWORD": env.RootPassword}
}

// initDatabase runs the embedded init script as the admin account.
func (s *Stack) initDatabase(ctx context.Context) error {
	host, port, err := s.DBEndpoint(ctx)
	if err != nil {
		return fmt.Errorf("db endpoint: %w", err)
	}

	var driver, dsn string
	switch s.Env.DBType {
	case "postgres":
		driver = "pgx"
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", s.Env.User, s.Env.Password, host, port, s.Env.Database)
	case "mysql", "mariadb":
		driver = "mysql"
		dsn = fmt.Sprintf("root:%s@tcp(%s:%s)/", s.Env.RootPassword, host, port)
	default:
		return fmt.Errorf("unsupported container database: %s", s.Env.DBType)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer conn.Close()

	// The port opens before the server accepts logins.
	for i := 0; i < 30; i++ {
		if err = conn.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("database not ready after 30 seconds: %w", err)
	}

	script, err := data.Initdb(s.Env.DBType, data.Accounts{
		Database:     s.Env.Database,
		User:         s.Env.User,
		Password:     s.Env.Password,
		ReadUser:     s.Env.ReadUser,
		ReadPassword: s.Env.ReadPassword,
	})
	if err != nil {
		return err
	}
	for _, stmt := range data.Statements(script) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: when executing > %s", err, stmt)
		}
	}
	return nil
}

// StartRedis starts a redis container for the download event stream.
func (s *Stack) StartRedis(ctx context.Context, t *testing.T) error {
	img := s.Env.RedisImage
	if img == "" {
		img = "redis:7-alpine"
	}
	redis, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          img,
			ExposedPorts:   []string{"6379/tcp"},
			WaitingFor:     wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			Networks:       []string{s.Network.Name},
			NetworkAliases: map[string][]string{s.Network.Name: {redisAlias}},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("start redis: %w", err)
	}
	s.Redis = redis
	logMessage(t, "Redis %s ready", img)
	return nil
}

// StartApp starts the gamestore service, building its image when missing.
func (s *Stack) StartApp(ctx context.Context, t *testing.T) error {
	port, err := nat.NewPort("tcp", s.Env.AppPort)
	if err != nil {
		return fmt.Errorf("app port: %w", err)
	}

	env := map[string]string{
		"PORT":             s.Env.AppPort,
		"DB_TYPE":          s.Env.DBType,
		"DB_HOST":          dbAlias,
		"DB_PORT":          s.Env.DBPort,
		"DB_DATABASE":      s.Env.Database,
		"DB_USER":          s.Env.User,
		"DB_PASSWORD":      s.Env.Password,
		"DB_READ_USER":     s.Env.ReadUser,
		"DB_READ_PASSWORD": s.Env.ReadPassword,
		"DB_AUTO_MIGRATE":  "true",
		"JWT_SECRET":       s.Env.JWTSecret,
		"STORAGE_DRIVER":   "mem",
		"MQ_TYPE":          "noop",
		"LOG_FORMAT":       "json",
	}
	if s.Redis != nil {
		env["MQ_TYPE"] = "redis"
		env["REDIS_URL"] = "redis://" + redisAlias + ":6379/0"
	}

	req := testcontainers.ContainerRequest{
		ExposedPorts: []string{string(port)},
		Env:          env,
		WaitingFor:   wait.ForHTTP("/api/health").WithPort(port).WithStartupTimeout(60 * time.Second),
		Networks:     []string{s.Network.Name},
	}

	exists, err := imageExists(ctx, appImage)
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	if exists {
		logMessage(t, "Image %s exists, reusing...", appImage)
		req.Image = appImage
	} else {
		logMessage(t, "Image %s does not exist, building...", appImage)
		if err := s.buildApp(ctx, &req); err != nil {
			return err
		}
	}

	app, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("start gamestore: %w", err)
	}
	s.App = app

	host, _ := app.Host(ctx)
	mapped, _ := app.MappedPort(ctx, port)
	logMessage(t, "BASE_URL=http://%s:%s", host, mapped.Port())
	return nil
}

// buildApp builds the builder stage once, then points req at the runtime stage.
func (s *Stack) buildApp(ctx context.Context, req *testcontainers.ContainerRequest) error {
	session := uuid.NewString()
	args := map[string]*string{"RESOURCE_REAPER_SESSION_ID": &session}

	builder, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    s.Env.BuildContext,
				Dockerfile: "Dockerfile",
				Repo:       "gamestore-test-builder",
				Tag:        "latest",
				BuildArgs:  args,
				BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
					opts.Target = "builder"
				},
			},
		},
		Started: false,
	})
	if err != nil {
		return fmt.Errorf("build gamestore builder: %w", err)
	}
	s.Builder = builder

	repo, tag, _ := strings.Cut(appImage, ":")
	req.FromDockerfile = testcontainers.FromDockerfile{
		Context:    s.Env.BuildContext,
		Dockerfile: "Dockerfile",
		Repo:       repo,
		Tag:        tag,
		KeepImage:  true,
		BuildArgs:  args,
		BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
			opts.Target = "runtime"
		},
	}
	return nil
}

// StartAll starts the database, redis and the gamestore service.
func StartAll(ctx context.Context, t *testing.T, env Env) (*Stack, error) {
	s, err := StartDatabase(ctx, t, env)
	if err != nil {
		return nil, err
	}
	if err := s.StartRedis(ctx, t); err != nil {
		s.Terminate(t)
		return nil, err
	}
	if err := s.StartApp(ctx, t); err != nil {
		s.Terminate(t)
		return nil, err
	}
	return s, nil
}

func imageExists(ctx context.Context, name string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
