package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create query_runs table
			CREATE TABLE query_runs (
				task_id VARCHAR(255) PRIMARY KEY,
				user_id BIGINT NOT NULL,
				question TEXT NOT NULL,
				final_sql TEXT,
				status VARCHAR(50) NOT NULL CHECK (status IN ('success', 'failed', 'cancelled')),
				error_message TEXT,
				error_code VARCHAR(100),
				row_count INT NOT NULL DEFAULT 0,
				execution_time_ms BIGINT NOT NULL DEFAULT 0,
				tokens_used INT NOT NULL DEFAULT 0,
				retry_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_query_runs_user_id ON query_runs(user_id);
			CREATE INDEX idx_query_runs_status ON query_runs(status);
			CREATE INDEX idx_query_runs_completed_at ON query_runs(completed_at);
		`,
	}
}
