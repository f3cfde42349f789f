package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	events   event.Service
	regs     event.RegistrationReader
	notifier notification.Notifier
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL [-first NAME] [-last NAME] [-admin|-organizer] - create or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose command (up, down, status, ...)")
	fmt.Println("  archive-events - archive the events that ended")
	fmt.Println("  notify -message MESSAGE [-title TITLE] [-event ID] - notify an event's registrants, or every active user")
}

// promptPassword reads a password without echoing it. An empty password prints usage.
func promptPassword(usage func()) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserFirst := addUserCmd.String("first", "", "The user's first name.")
	addUserLast := addUserCmd.String("last", "", "The user's last name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Make the user an admin.")
	addUserOrganizer := addUserCmd.Bool("organizer", false, "Make the user an organizer.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	notifyCmd := flag.NewFlagSet("notify", flag.ContinueOnError)
	notifyMessage := notifyCmd.String("message", "", "The notification message.")
	notifyTitle := notifyCmd.String("title", "Announcement", "The notification title.")
	notifyEvent := notifyCmd.String("event", "", "Only notify the users registered to this event.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || (*addUserAdmin && *addUserOrganizer) {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		userType := user.TypeStudent
		switch {
		case *addUserAdmin:
			userType = user.TypeAdmin
		case *addUserOrganizer:
			userType = user.TypeOrganizer
		}
		return cli.addUser(*addUserEmail, *addUserFirst, *addUserLast, pwd, userType)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "archive-events":
		return cli.archiveEvents()

	case "notify":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *notifyMessage == "" {
			notifyCmd.Usage()
			return errHelp
		}
		return cli.notify(*notifyTitle, *notifyMessage, *notifyEvent)

	default:
		cli.printUsage()
		return errHelp
	}
}
