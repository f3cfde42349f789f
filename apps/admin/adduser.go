package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, firstName, lastName, pwd, userType string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	firstName = core.CleanString(firstName)
	lastName = core.CleanString(lastName)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	created := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: core.NowFunc()}
		created = true
	}
	if firstName != "" {
		usr.FirstName = firstName
	}
	if lastName != "" {
		usr.LastName = lastName
	}
	usr.UserType = userType
	usr.UpdatedAt = core.NowFunc()
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	action := "updated"
	if created {
		action = "created"
	}
	fmt.Printf("%s %s (%s)\n", action, usr.Email, usr.UserType)
	return nil
}
