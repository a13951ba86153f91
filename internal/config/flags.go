// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags from the process arguments.
//
// Flags:
//
//	-a control API address in format [host]:[port]
//	-r remote authority base URL
//	-backend storage backend (memory, file, sqlite, postgres)
//	-d database DSN
//	-f JSON file storage path
//	-c/-config json file path with configs
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-request-timeout control API request timeout (e.g., "30s", "1m")
//	-remote-timeout remote authority request timeout
//	-max-attempts default retry limit of a sync operation
//	-max-queue-size sync queue bound
//	-probe-interval latency probe interval
//	-log-file rotated log file path
//	-token-ttl lifetime of issued tokens
//	-issue-token print a control API token for the given caller and exit
func ParseFlags() (*StructuredConfig, error) {
	return parseFlags(os.Args[1:])
}

func parseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("keeperd", flag.ContinueOnError)

	var serverAddress NetAddress
	var remoteAddress string
	var backend string
	var databaseDSN string
	var fileStoragePath string
	var jsonConfigPath string
	var tokenSignKey string
	var tokenIssuer string
	var requestTimeout time.Duration
	var remoteTimeout time.Duration
	var maxAttempts int
	var maxQueueSize int
	var probeInterval time.Duration
	var logFile string
	var tokenTTL time.Duration
	var issueTokenFor string

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&remoteAddress, "r", "", "Remote authority base URL")
	fs.StringVar(&backend, "backend", "", "Storage backend")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&fileStoragePath, "f", "", "File storage path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&remoteTimeout, "remote-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	fs.IntVar(&maxAttempts, "max-attempts", 0, "Sync operation retry limit")
	fs.IntVar(&maxQueueSize, "max-queue-size", 0, "Sync queue bound")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Latency probe interval")
	fs.StringVar(&logFile, "log-file", "", "Log file path")
	fs.DurationVar(&tokenTTL, "token-ttl", 0, "Issued token lifetime")
	fs.StringVar(&issueTokenFor, "issue-token", "", "Print a token for the caller and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenTTL:      tokenTTL,
			IssueTokenFor: issueTokenFor,
		},
		Storage: Storage{
			Backend: backend,
			DB: DB{
				DSN: databaseDSN,
			},
			Files: Files{
				Path: fileStoragePath,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    remoteAddress,
			RequestTimeout: remoteTimeout,
		},
		Sync: Sync{
			MaxAttempts:  maxAttempts,
			MaxQueueSize: maxQueueSize,
		},
		Workers: Workers{
			ProbeInterval: probeInterval,
		},
		Log: Log{
			File: logFile,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}
	if port > 65535 {
		return errors.New("port number is out of range")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
