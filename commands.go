package main

import (
	"errors"
	"fmt"
	"gallery/db"
	"gallery/models"
	"gallery/storage"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func repairCoversCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "repair-covers",
		Short: "Check every album cover and fix the invalid ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			db.Init()
			models.Init()
			changed, err := models.RepairAllCovers(dryRun)
			verb := "repaired"
			if dryRun {
				verb = "would be repaired"
			}
			fmt.Printf("%d album cover(s) %s: %v\n", len(changed), verb, changed)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report the albums that need a repair")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username> <password>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db.Init()
			models.Init()
			if err := models.UserResetPassword(args[0], args[1]); err != nil {
				return errors.New(models.ErrorMessage(err))
			}
			fmt.Printf("Password changed for %s\n", args[0])
			return nil
		},
	}
}

func bucketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage storage buckets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List storage buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			db.Init()
			storage.Init()
			buckets, err := storage.ListBuckets()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tPATH\tFREE MB")
			for i := range buckets {
				kind, free := "disk", "-"
				if buckets[i].IsS3() {
					kind = "s3"
				} else if s := storage.StorageFrom(buckets[i].ID); s != nil {
					free = fmt.Sprint(s.GetFreeSpace() / 1024 / 1024)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", buckets[i].ID, buckets[i].Name, kind, buckets[i].Path, free)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(bucketAddCmd())
	return cmd
}

func bucketAddCmd() *cobra.Command {
	bucket := storage.Bucket{}
	var s3 bool
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a disk or S3 bucket after checking it is writable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db.Init()
			storage.Init()
			bucket.Name = args[0]
			if s3 {
				bucket.StorageType = storage.StorageTypeS3
			}
			if err := storage.AddBucket(&bucket); err != nil {
				return err
			}
			fmt.Printf("Bucket %d added\n", bucket.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&s3, "s3", false, "S3 bucket instead of a directory on disk")
	flags.StringVar(&bucket.Path, "path", "", "Absolute directory for disk buckets, key prefix for S3")
	flags.StringVar(&bucket.Endpoint, "endpoint", "", "S3 compatible endpoint, empty for AWS")
	flags.StringVar(&bucket.Region, "region", "", "S3 region (default us-east-1)")
	flags.StringVar(&bucket.S3Key, "key", "", "S3 access key")
	flags.StringVar(&bucket.S3Secret, "secret", "", "S3 secret key")
	flags.StringVar(&bucket.SSEEncryption, "sse", "", "S3 server side encryption, e.g. AES256")
	return cmd
}
