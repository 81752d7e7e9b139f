package assets

// PackBuckets spreads files (sorted largest first) over limits.Concurrency
// buckets. Each file goes to the first bucket, starting from a rotating
// offset, with room for its bytes and below the file count limit. When
// none fits, a new bucket holding only that file is appended, so packing
// never fails. A file larger than MaxBucketSize leaves its dedicated
// bucket with negative remaining bytes.
func PackBuckets(files []*AssetFile, limits Limits) []*Bucket {
	limits = limits.withDefaults()

	buckets := make([]*Bucket, limits.Concurrency)
	for i := range buckets {
		buckets[i] = &Bucket{RemainingBytes: limits.MaxBucketSize}
	}

	offset := 0
	for _, file := range files {
		inserted := false

		for i := range buckets {
			bucket := buckets[(i+offset)%len(buckets)]
			if bucket.RemainingBytes >= file.Size && len(bucket.Files) < limits.MaxBucketFileCount {
				bucket.Files = append(bucket.Files, file)
				bucket.RemainingBytes -= file.Size
				inserted = true
				break
			}
		}

		if !inserted {
			buckets = append(buckets, &Bucket{
				Files:          []*AssetFile{file},
				RemainingBytes: limits.MaxBucketSize - file.Size,
			})
		}
		offset++
	}

	return buckets
}
