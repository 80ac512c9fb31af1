package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/iproute"
	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

// openStore connects to the entry store using the resolved global flags,
// prompting for an SSH password when tunneled access is requested
// without one.
func openStore() (store.Store, error) {
	pass := sshPass
	if sshUser != "" && pass == "" {
		fmt.Fprintf(os.Stderr, "%s@%s password: ", sshUser, storeAddr)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		pass = string(raw)
	}

	return store.NewRedisStore(store.RedisOptions{
		Addr:    storeAddr,
		DB:      storeDB,
		SSHUser: sshUser,
		SSHPass: pass,
	})
}

// openRouteMgr connects to the store and returns a route manager scoped
// to the --tag flag. The caller must Close the returned store.
func openRouteMgr() (*iproute.Mgr, store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	m := iproute.NewMgr(st)
	m.SetTag(tagFlag)
	return m, st, nil
}

// openIntfMgr connects to the store and returns an interface manager.
// The caller must Close the returned store.
func openIntfMgr() (*intf.Mgr, store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	m, err := intf.NewMgr(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return m, st, nil
}

// run wraps a command body so that the managers' fatal panics surface as
// ordinary CLI errors instead of stack traces.
func run(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case *intf.NotFoundError:
			err = fmt.Errorf("%s", v.Error())
		case *iproute.NotFoundError:
			err = fmt.Errorf("%s", v.Error())
		case *iproute.TagMismatchError:
			err = fmt.Errorf("%s", v.Error())
		case *iproute.ReentrantResyncError:
			err = fmt.Errorf("%s", v.Error())
		default:
			panic(r)
		}
	}()
	return fn()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
