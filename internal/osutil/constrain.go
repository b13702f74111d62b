// Package osutil abstracts privilege-dropping OS interactions: chroot, setuid, setgid. mhost talks
// to many third-party name servers chosen by the operator (including --predefined and
// server-lists-fetched pools); constraining the process after startup limits the blast radius of a
// malicious or compromised resolver response reaching anything beyond DNS parsing.
package osutil

import (
	"fmt"
	"os"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

const me = "osutil.Constrain: "

// Constrain chroots to dir and downgrades the process to a nominated uid/gid, in that order:
// symbolic names are resolved first while /etc/passwd is still reachable, then chroot runs while
// the process still has the privilege to call it, and setgid/setuid run last so the whole sequence
// is irreversible once it completes. Each step is optional if its parameter is empty.
func Constrain(userName, groupName, chrootDir string) error {
	uid := -1
	gid := -1
	if len(userName) > 0 {
		u, err := user.Lookup(userName)
		if err != nil {
			return fmt.Errorf(me+"Lookup failed: %s", err.Error())
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return fmt.Errorf(me+"Could not convert UID %s to an int: %s", u.Uid, err.Error())
		}
	}

	if len(groupName) > 0 {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return fmt.Errorf(me+"Could not look up group: %s: %s", groupName, err.Error())
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf(me+"Could not convert GID %s to an int: %s", g.Gid, err.Error())
		}
	}

	if len(chrootDir) > 0 {
		if err := os.Chdir(chrootDir); err != nil {
			return fmt.Errorf(me+"Could not cd to %s: %s", chrootDir, err.Error())
		}
		if err := unix.Chroot(chrootDir); err != nil {
			return fmt.Errorf(me+"Could not chroot to %s: %s", chrootDir, err.Error())
		}
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf(me+"Could not cd to /: %s", err.Error())
		}
	}

	if gid != -1 {
		if setgidAllowed {
			if err := unix.Setgroups([]int{}); err != nil {
				return fmt.Errorf(me+"Could not clear group list: %s", err.Error())
			}
			if err := unix.Setgid(gid); err != nil {
				return fmt.Errorf(me+"Could not setgid to %d/%s: %s", gid, groupName, err.Error())
			}
		} else {
			fmt.Println("WARNING: Go setgid() disabled for Linux. This process remains privileged.")
		}
	}

	if uid != -1 {
		if setuidAllowed {
			if err := unix.Setuid(uid); err != nil {
				return fmt.Errorf(me+"Could not setuid to %d/%s: %s", uid, userName, err.Error())
			}
		} else {
			fmt.Println("WARNING: Go setuid() disabled for Linux. This process remains privileged.")
		}
	}

	return nil
}

// ConstraintReport returns a printable uid/gid/cwd string, used by --debug to confirm a requested
// downgrade actually took effect.
func ConstraintReport() string {
	uid := os.Getuid()
	gid := os.Getgid()
	cwd, _ := os.Getwd()
	return fmt.Sprintf("uid=%d gid=%d cwd=%s", uid, gid, cwd)
}
