package database

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// SetupTunnel forwards a local port to the target server through the SSH
// host and returns a connection string pointing at that local port.
func SetupTunnel(config Config) (string, func(), error) {
	remoteAddr, rewrite, err := tunnelTarget(config)
	if err != nil {
		return "", nil, err
	}

	key, err := os.ReadFile(config.SSHKey)
	if err != nil {
		return "", nil, fmt.Errorf("unable to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return "", nil, fmt.Errorf("unable to parse private key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: config.SSHUser,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	sshClient, err := ssh.Dial("tcp", net.JoinHostPort(config.SSHHost, strconv.Itoa(config.SSHPort)), sshConfig)
	if err != nil {
		return "", nil, fmt.Errorf("unable to connect to SSH server: %w", err)
	}

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		sshClient.Close()
		return "", nil, fmt.Errorf("unable to setup local listener: %w", err)
	}

	localPort := listener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			localConn, err := listener.Accept()
			if err != nil {
				// closed by cleanup
				return
			}

			remoteConn, err := sshClient.Dial("tcp", remoteAddr)
			if err != nil {
				log.Printf("Error dialing %s through SSH: %v", remoteAddr, err)
				localConn.Close()
				continue
			}

			go copyConn(localConn, remoteConn)
			go copyConn(remoteConn, localConn)
		}
	}()

	cleanup := func() {
		listener.Close()
		sshClient.Close()
	}

	return rewrite(localPort), cleanup, nil
}

// tunnelTarget works out which server the tunnel must reach and how to build
// the connection string once the local port is known. A URL connection
// string wins over the host/port flags.
func tunnelTarget(config Config) (string, func(int) string, error) {
	if config.ConnectionString == "" {
		remote := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
		return remote, func(port int) string {
			return keywordConnString("localhost", port, config)
		}, nil
	}

	u, err := url.Parse(config.ConnectionString)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", nil, fmt.Errorf("SSH tunnel needs a postgres:// URL or host/port flags")
	}

	port := u.Port()
	if port == "" {
		port = "5432"
	}
	remote := net.JoinHostPort(u.Hostname(), port)

	return remote, func(local int) string {
		tunneled := *u
		tunneled.Host = net.JoinHostPort("localhost", strconv.Itoa(local))
		return tunneled.String()
	}, nil
}

func copyConn(dst, src net.Conn) {
	defer dst.Close()
	defer src.Close()
	_, err := io.Copy(dst, src)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("Error copying connection: %v", err)
	}
}
