// Package session wraps AWS SDK v2 config loading and vends per-region
// service clients. It is the only package that imports aws-sdk-go-v2/config
// directly, keeping "establish a connection" separate from "use it".
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/awsutil"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
)

// Session owns the base aws.Config and caches one client set per region.
// It is safe for concurrent use; the registry and orchestrator share a
// single Session across a run's worker pool.
type Session struct {
	profile string
	mu      sync.Mutex
	clients map[string]*regionClients
}

// regionClients bundles the four service clients coldsnap talks to for a
// single AWS region.
type regionClients struct {
	EC2          *ec2.Client
	RDS          *rds.Client
	ECS          *ecs.Client
	AutoScaling  *autoscaling.Client
}

// New loads the default AWS credential chain (env vars, shared config,
// SSO, EC2/ECS instance roles) under the given named profile, and
// verifies it resolves to a caller identity before returning. profile
// may be "" to use the default profile.
func New(ctx context.Context, profile string) (*Session, error) {
	slog.Debug("initializing AWS session", "profile", profile)

	var cfg aws.Config
	loadOperation := func(ctx context.Context) error {
		opts := []func(*config.LoadOptions) error{}
		if profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(profile))
		}

		loaded, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "load AWS config", loadOperation); err != nil {
		return nil, breakerrors.Configurationf("session.New", "failed to load AWS credentials for profile %q: %v", profile, err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, breakerrors.Authenticationf("session.New", err, "failed to resolve caller identity for profile %q", profile)
	}

	slog.Info("AWS session established", "profile", profile, "account", aws.ToString(identity.Account), "arn", aws.ToString(identity.Arn))

	s := &Session{
		profile: profile,
		clients: make(map[string]*regionClients),
	}
	// Seed the default region's client set so the first driver call
	// doesn't pay the aws.Config copy cost under lock.
	s.forRegion(cfg, cfg.Region)
	return s, nil
}

// clientsFor returns the cached client bundle for region, loading the
// region's config (and constructing clients) on first use.
func (s *Session) clientsFor(ctx context.Context, region string) (*regionClients, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc, ok := s.clients[region]; ok {
		return rc, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if s.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, breakerrors.Configurationf("session.clientsFor", "failed to load config for region %q: %v", region, err)
	}

	rc := s.forRegion(cfg, region)
	return rc, nil
}

// forRegion constructs and caches a client bundle for cfg's region.
// Caller must hold s.mu.
func (s *Session) forRegion(cfg aws.Config, region string) *regionClients {
	rc := &regionClients{
		EC2:         ec2.NewFromConfig(cfg),
		RDS:         rds.NewFromConfig(cfg),
		ECS:         ecs.NewFromConfig(cfg),
		AutoScaling: autoscaling.NewFromConfig(cfg),
	}
	s.clients[region] = rc
	return rc
}

// EC2 returns the EC2 client for region.
func (s *Session) EC2(ctx context.Context, region string) (*ec2.Client, error) {
	rc, err := s.clientsFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return rc.EC2, nil
}

// RDS returns the RDS client for region.
func (s *Session) RDS(ctx context.Context, region string) (*rds.Client, error) {
	rc, err := s.clientsFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return rc.RDS, nil
}

// ECS returns the ECS client for region.
func (s *Session) ECS(ctx context.Context, region string) (*ecs.Client, error) {
	rc, err := s.clientsFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return rc.ECS, nil
}

// AutoScaling returns the Auto Scaling client for region.
func (s *Session) AutoScaling(ctx context.Context, region string) (*autoscaling.Client, error) {
	rc, err := s.clientsFor(ctx, region)
	if err != nil {
		return nil, err
	}
	return rc.AutoScaling, nil
}

// String satisfies fmt.Stringer for log lines; it never leaks credentials.
func (s *Session) String() string {
	return fmt.Sprintf("session(profile=%s)", s.profile)
}
