package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobPortal/internal/auth"
	"jobPortal/internal/store"
)

var createAdminUsername string

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "创建初始管理员账号（随机密码，首次登录需改密）",
	RunE: func(cmd *cobra.Command, _ []string) error {
		u := strings.TrimSpace(createAdminUsername)
		if u == "" {
			return errors.New("missing required flag: --username")
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}

		password, err := auth.GenerateRandomPassword(24)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		account := store.Account{
			Username:           u,
			PasswordHash:       hashed,
			MustChangePassword: true,
			IsAdmin:            true,
		}
		if err := store.New(db).CreateAccount(cmd.Context(), &account, nil); err != nil {
			if errors.Is(err, store.ErrUsernameTaken) {
				return fmt.Errorf("user %q already exists", u)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "已创建初始管理员账号（首次登录需强制改密）：\n")
		fmt.Fprintf(out, "用户名: %s\n", u)
		fmt.Fprintf(out, "初始密码: %s\n", password)
		fmt.Fprintf(out, "提示：请立即登录并修改密码（该密码仅显示一次）。\n")
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminUsername, "username", "", "初始管理员用户名（必填）")
	rootCmd.AddCommand(createAdminCmd)
}
